// Package normalisers turns raw file bytes into workspace resources.
// Each normaliser handles a set of file extensions; the Registry picks the
// highest-priority normaliser that claims a file's extension.
//
// The default registry holds markdown for notes, plaintext for .txt files
// and attachment as the catch-all.
package normalisers
