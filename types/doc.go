// Package types provides core types used across the memkit engine.
// This package has ZERO dependencies on other memkit packages to avoid
// circular imports. All other packages should import types from here.
package types
