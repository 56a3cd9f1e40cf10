//go:build cgo && !noodbc

package main

// Registers the "odbc" database/sql driver used by reference.driver. Needs
// unixODBC at build and run time; build with -tags noodbc to leave it out.
import _ "github.com/alexbrainman/odbc"
