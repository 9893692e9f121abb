package main

import "strings"

// multiFlag collects a repeatable string flag (e.g. --approve <pat>,
// repeated once per pattern).
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
