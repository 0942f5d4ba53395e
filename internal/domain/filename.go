// Package domain filename.go derives and validates public filenames.
package domain

import "strings"

// maxTitleLen bounds the sanitized title component so derived names stay
// well under common filesystem limits once the format id and extension are
// appended.
const maxTitleLen = 150

// DeriveFilename produces the public filename for a downloaded artifact:
// a sanitized title, the format identifier, and the container extension,
// joined as "title_format.ext". Names are stable per title+format, so two
// requests for the same title and format collide and the newest grant wins.
func DeriveFilename(title, formatID, ext string) string {
	t := sanitizeTitle(title)
	f := sanitizeComponent(formatID)
	e := sanitizeComponent(ext)
	if f == "" {
		f = "best"
	}
	if e == "" {
		e = "bin"
	}
	return t + "_" + f + "." + e
}

// ValidFilename reports whether name is safe to use as a key into the file
// store: non-empty, no path separators, no parent traversal.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return true
}

// sanitizeTitle maps a remote media title onto a conservative filename
// component. Anything outside [A-Za-z0-9.-] becomes '_' and runs of
// replacements collapse to one.
func sanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastUnderscore := false
	for _, r := range title {
		ok := r == '.' || r == '-' ||
			(r >= '0' && r <= '9') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= 'a' && r <= 'z')
		if ok {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	s := strings.Trim(b.String(), "._-")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	if len(s) > maxTitleLen {
		s = s[:maxTitleLen]
	}
	if s == "" {
		return "video"
	}
	return s
}

// sanitizeComponent strips anything that could break the derived name out of
// a format id or extension.
func sanitizeComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		ok := r == '-' || r == '+' ||
			(r >= '0' && r <= '9') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= 'a' && r <= 'z')
		if ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}
