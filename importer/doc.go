// Package importer reads log files into the record store and computes the
// fields shared by every imported record.
//
// Supported inputs are .json and .jsonl (one object per line, or a JSON
// array when a .json file starts with '[') and .log and .txt, where each
// line is tried as a JSON object. Malformed lines are skipped, an
// unsupported file is skipped, and a record the store rejects is skipped;
// none of these stop the import.
package importer
