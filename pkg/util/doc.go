// Package util holds small helpers shared by the soapkit packages.
package util
