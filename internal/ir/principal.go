package ir

import "regexp"

var principalPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*\.[a-z]{2,}$`)

// ValidPrincipal reports whether p is a service host name such as
// "codebuild.amazonaws.com". Trust policies and invoke grants accept
// nothing else.
func ValidPrincipal(p string) bool {
	return principalPattern.MatchString(p)
}
