package domain

import "fmt"

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a page whose expected structure is missing.
type ParseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigurationError reports a deployment mistake such as a duplicate source id.
type ConfigurationError struct {
	SourceID string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.SourceID == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: source %q: %s", e.SourceID, e.Reason)
}
