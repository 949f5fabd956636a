// Package web holds the embedded test page.
package web

import _ "embed"

//go:embed index.html
var Index []byte
