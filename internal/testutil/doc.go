// Package testutil holds fixtures shared by package tests: deterministic
// run ID generators and a builder for controller project documents.
package testutil
