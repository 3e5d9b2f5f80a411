// Package cmd implements the command-line interface for gmailagent.
//
// gmailagent has a single command with two modes:
//   - --auth: authorize Gmail through the tool-routing service
//   - default: answer one question about the mailbox (--query/-q)
//
// Configuration comes from the environment and an optional .env file in the
// working directory.
package cmd
