// Package logging provides a simple leveled logging interface for the
// asset catalog.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level is read from the DEBUG and LOG_LEVEL environment variables and
// may be overridden from the configuration file with SetLevel.
package logging
