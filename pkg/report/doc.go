// Package report writes the flat record and score tables (CSV) and renders
// console tables for the analyze and history commands.
package report
