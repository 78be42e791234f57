// Package sshexec provides the exec tool, which runs shell commands on a
// remote host over SSH.
//
// The connection is opened on the first call and reused afterwards. Command
// results are returned as JSON with the exit code and the captured output.
package sshexec
