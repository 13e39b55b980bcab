// Package classify splits input spreadsheets into aggregate and entity files
// and assigns each one the statistics date it covers.
package classify
