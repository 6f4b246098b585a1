//go:build plugin

package main

var (
	PLUGIN_ID   = [4]byte{'T', 'a', 'k', 't'}
	PLUGIN_NAME = "Takt"
)
