// Package ferrors re-exports the root package's error-stack helpers under
// an internal/ path for packages that only need error wrapping, not the
// rest of the generic toolkit.
package ferrors

import "github.com/zuhaib786/FerroDB"

var WithStack = ferrodb.WithStack
var StackTrace = ferrodb.StackTrace
