package yarn

import "strings"

// protocols whose descriptors point at the project's own sources rather
// than a registry resolution
var localProtocols = []string{"workspace:", "link:", "portal:"}

// splitDescriptors splits an entry header such as
// `"@babel/core@^7.0.0", "@babel/core@^7.1.0"` into its descriptors.
func splitDescriptors(header string) []string {
	var out []string
	for _, part := range strings.Split(header, ",") {
		d := strings.TrimSpace(part)
		d = strings.Trim(d, `"'`)
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// DescriptorName extracts the package name a descriptor resolves to.
//
//	left-pad@^1.3.0                     -> left-pad
//	@scope/pkg@npm:^2.0.0               -> @scope/pkg
//	patch:left-pad@npm%3A1.3.0#~builtin -> left-pad
//	alias@npm:real-pkg@^1.0.0           -> real-pkg
//
// Local protocol descriptors return "".
func DescriptorName(descriptor string) string {
	d := strings.TrimSpace(descriptor)
	for _, prefix := range []string{"patch:", "virtual:"} {
		d = strings.TrimPrefix(d, prefix)
	}

	name, rng := splitNameRange(d)
	if name == "" {
		return ""
	}
	for _, proto := range localProtocols {
		if strings.HasPrefix(rng, proto) {
			return ""
		}
	}

	if target, ok := strings.CutPrefix(rng, "npm:"); ok {
		// an alias resolves to the package named after npm:
		if aliased, aliasedRange := splitNameRange(target); aliased != "" && aliasedRange != "" {
			return aliased
		}
	}
	return name
}

// splitNameRange splits "name@range" at the version separator, skipping
// the leading "@" of a scoped name.
func splitNameRange(d string) (string, string) {
	start := 0
	if strings.HasPrefix(d, "@") {
		start = 1
	}
	at := strings.Index(d[start:], "@")
	if at < 0 {
		return d, ""
	}
	at += start
	return d[:at], d[at+1:]
}

// hashFromResolved returns the "#fragment" of a resolved tarball URL.
func hashFromResolved(resolved string) string {
	if _, frag, ok := strings.Cut(resolved, "#"); ok {
		return frag
	}
	return ""
}
