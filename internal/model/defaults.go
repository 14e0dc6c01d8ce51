package model

// Shared defaults for file locations, matching the layout of a typical
// yosys/nextpnr build directory.
const (
	DefaultCSVFile    = "LUTs.csv"
	DefaultYosysLog   = "yosys.log"
	DefaultNextpnrLog = "nextpnr.log"
	DefaultGitPath    = ".git"
	DefaultTarget     = "ice40"
)
