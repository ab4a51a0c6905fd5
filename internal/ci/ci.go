// Package ci reads the repository and revision being scanned from CI environment variables.
package ci

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// CIKind represents the type of CI.
type CIKind int

const (
	// CIUnknown indicates the CI provider could not be identified.
	CIUnknown CIKind = iota
	CIGitHub
	CIGitLab
	CIBitbucket
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// CIEnvironment is the canonical revision metadata of a CI job.
type CIEnvironment struct {
	Kind          CIKind
	CI            bool
	CommitHash    string // tip commit that triggered the job
	Reference     string // fully qualified ref, e.g. refs/heads/main
	ReferenceName string // short ref or branch name
	RepositoryURI string // web URL of the repository
}

// Branch returns the branch name when the job runs for a branch ref.
func (e CIEnvironment) Branch() string {
	if strings.HasPrefix(e.Reference, "refs/heads/") {
		return strings.TrimPrefix(e.Reference, "refs/heads/")
	}
	return ""
}

// Tag returns the tag name when the job runs for a tag ref.
func (e CIEnvironment) Tag() string {
	if strings.HasPrefix(e.Reference, "refs/tags/") {
		return strings.TrimPrefix(e.Reference, "refs/tags/")
	}
	return ""
}

// String returns the human-readable string representation of a CIKind.
func (c CIKind) String() string {
	switch c {
	case CIGitHub:
		return "github"
	case CIGitLab:
		return "gitlab"
	case CIBitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// ParseCIKind converts a string identifier into a CIKind value.
func ParseCIKind(raw string) (CIKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "github":
		return CIGitHub, nil
	case "gitlab":
		return CIGitLab, nil
	case "bitbucket":
		return CIBitbucket, nil
	default:
		return CIUnknown, fmt.Errorf("unsupported ci kind %q", raw)
	}
}

// DetectCIKind infers the CI provider from well-known environment variables.
func DetectCIKind(lookup LookupFunc) CIKind {
	if lookup == nil {
		lookup = os.Getenv
	}

	if lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "" {
		return CIGitHub
	}
	if strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "" {
		return CIGitLab
	}
	if lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "" {
		return CIBitbucket
	}

	return CIUnknown
}

// Detect returns the environment of the current CI job. ok is false outside a known CI or
// when the job exposes no commit.
func Detect(lookup LookupFunc) (CIEnvironment, bool) {
	if lookup == nil {
		lookup = os.Getenv
	}
	env, err := FromEnvironment(DetectCIKind(lookup), lookup)
	if err != nil || env.CommitHash == "" {
		return CIEnvironment{}, false
	}
	return env, true
}

// FromEnvironment resolves the variables of the given CI kind.
func FromEnvironment(kind CIKind, lookup LookupFunc) (CIEnvironment, error) {
	if lookup == nil {
		lookup = os.Getenv
	}

	switch kind {
	case CIGitHub:
		return extractGitHubVariables(lookup), nil
	case CIGitLab:
		return extractGitLabVariables(lookup), nil
	case CIBitbucket:
		return extractBitbucketVariables(lookup), nil
	default:
		return CIEnvironment{}, fmt.Errorf("unsupported ci kind: %s", kind)
	}
}

// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func extractGitHubVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	var repoURI string
	if serverURL, fullName := lookup("GITHUB_SERVER_URL"), lookup("GITHUB_REPOSITORY"); serverURL != "" && fullName != "" {
		repoURI = strings.TrimRight(serverURL, "/") + "/" + fullName
	}

	return CIEnvironment{
		Kind:          CIGitHub,
		CI:            ci,
		CommitHash:    lookup("GITHUB_SHA"),
		Reference:     lookup("GITHUB_REF"),
		ReferenceName: lookup("GITHUB_REF_NAME"),
		RepositoryURI: repoURI,
	}
}

// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func extractGitLabVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	var fullRef, refName string
	if tag := lookup("CI_COMMIT_TAG"); tag != "" {
		fullRef = "refs/tags/" + tag
		refName = tag
	} else if mrRef := lookup("CI_MERGE_REQUEST_REF_PATH"); mrRef != "" {
		// refs/merge-requests/42/head
		fullRef = mrRef
		refName = lookup("CI_MERGE_REQUEST_IID")
		if refName == "" {
			refName = lookup("CI_MERGE_REQUEST_SOURCE_BRANCH_NAME")
		}
	} else if refName = lookup("CI_COMMIT_REF_NAME"); refName != "" {
		fullRef = "refs/heads/" + refName
	}

	return CIEnvironment{
		Kind:          CIGitLab,
		CI:            ci,
		CommitHash:    lookup("CI_COMMIT_SHA"),
		Reference:     fullRef,
		ReferenceName: refName,
		RepositoryURI: lookup("CI_PROJECT_URL"),
	}
}

// See https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/.
func extractBitbucketVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	var reference, refName string
	if tag := lookup("BITBUCKET_TAG"); tag != "" {
		reference = "refs/tags/" + tag
		refName = tag
	} else if branch := lookup("BITBUCKET_BRANCH"); branch != "" {
		reference = "refs/heads/" + branch
		refName = branch
	} else if pr := lookup("BITBUCKET_PR_ID"); pr != "" {
		reference = "refs/pull/" + pr
		refName = pr
	}

	var repoURI string
	if origin := lookup("BITBUCKET_GIT_HTTP_ORIGIN"); origin != "" {
		if u, err := url.Parse(origin); err == nil && u.Scheme != "" && u.Host != "" {
			u.User = nil
			repoURI = u.String()
		}
	}

	return CIEnvironment{
		Kind:          CIBitbucket,
		CI:            ci,
		CommitHash:    lookup("BITBUCKET_COMMIT"),
		Reference:     reference,
		ReferenceName: refName,
		RepositoryURI: repoURI,
	}
}
