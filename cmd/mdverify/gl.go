//go:build !nogl

package main

import _ "github.com/gogpu/multidraw/backend/gl43"
