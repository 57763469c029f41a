package main

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// deviceName derives a name the filesystem accepts from a host path: the
// slugged stem plus the lowercased extension, shortened to fit a slot.
func deviceName(hostPath string, secondary bool) string {
	base := filepath.Base(hostPath)
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "file"
	}

	prefix := ""
	if secondary {
		prefix = SecondaryPrefix
	}
	if max := NameCapacity - 1 - len(prefix) - len(ext); len(stem) > max {
		stem = strings.TrimRight(stem[:max], "-")
	}
	return prefix + stem + ext
}

// secondaryName prefixes name with the secondary drive selector unless it
// already carries it.
func secondaryName(name string, secondary bool) string {
	if !secondary || strings.HasPrefix(name, SecondaryPrefix) {
		return name
	}
	return SecondaryPrefix + name
}
