// Package preprocess derives the text that gets embedded from the raw JSON
// payload of each record: the values of the selected fields, one per line,
// stripped of everything that is not a letter, digit or whitespace.
package preprocess
