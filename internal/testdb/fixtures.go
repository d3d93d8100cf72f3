package testdb

const (
	csvFilename = "mathesar/tests/data/patents.csv"
	tsvFilename = "mathesar/tests/data/patents.tsv"
)

// CSVFilename is the module-relative path of the comma-separated sample data.
// The file is not checked for existence.
func CSVFilename() string { return csvFilename }

// TSVFilename is the module-relative path of the tab-separated sample data.
// The file is not checked for existence.
func TSVFilename() string { return tsvFilename }
