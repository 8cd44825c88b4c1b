// Package cli provides the vault command-line client.
//
// Commands can be run one at a time (vaultctl ls) or from an interactive
// prompt when no command is given. The login session is saved in the local
// state database, so a later run picks it up again. When the server cannot
// be reached, ls shows the last listing seen and the prompt switches to
// offline mode.
package cli
