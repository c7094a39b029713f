/*
Package mesa loads the files of the MESA sleep dataset into
column-oriented tables.

PSG sleep stage annotations are NSRR XML files.  They are flattened
into a sleep stage timeline with one row per 30 second epoch: a time
column with the elapsed seconds and a sleep column with the stage
label.  Only events of type "Stages|Stages" are used, and each event
contributes as many rows as it spans whole epochs.

Actigraphy, R-point, respiration feature, EDR feature and cleaned
exports are CSV files.  They are read with a CSVReader, which infers
the data type of each column and places the values into a Table of
Series objects.  Raw signal recordings are EDF files, read by an
EDFReader.

The LoadSingle* functions take the dataset root and a subject id and
open the file at its fixed location below the root.  A file that
cannot be opened is reported as a DatasetNotFoundError.  The LoadAll*
functions take a folder and read every matching file in it, keyed by
the first four digit run in the file name.
*/
package mesa
