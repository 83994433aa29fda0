// Package file stores refindex settings in a TOML file.
//
// The file is config.toml inside the configuration directory, which is
// ~/.refindex unless the caller passes another one. Tables map onto
// dot-notation keys: [embedding] model is read as "embedding.model".
package file
