// Package logging configures log/slog for soapkit.
//
// Library packages never build their own handlers: they accept a
// *slog.Logger through a WithLogger option and fall back to Nop. Hosts such
// as the soapkit CLI build one logger from a Config:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel(cfg.Logging.Level),
//	    Format: logging.ParseFormat(cfg.Logging.Format),
//	})
//
// NewMultiHandler fans records out to several handlers, for example text on
// stderr plus JSON in a log file.
package logging
