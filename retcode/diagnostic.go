package retcode

import (
	"fmt"
	"io"
)

// Diagnostic writes a one-line human-readable report for err to w, the same
// shape as the original implementation's REPORT_RETCODE macro ("Error:
// <message>"). cmd/unixfs uses this; terminal and the lower packages return
// errors and never write diagnostics themselves.
func Diagnostic(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}
