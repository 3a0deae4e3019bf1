package benchmark

import "strings"

// FilterPeers keeps rows whose PROVIDER contains any peer token,
// case-insensitively. An empty set returns t unchanged. Substring matching
// lets "portsmouth" match "Portsmouth Hospitals University NHS Trust".
func FilterPeers(t *Table, peers PeerSet) *Table {
	tokens := make([]string, 0, len(peers))
	for _, p := range peers {
		if tok := strings.ToLower(strings.TrimSpace(p)); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return t
	}

	idx := t.Index(ColumnProvider)
	return t.Filter(func(row []string) bool {
		if idx < 0 {
			return false
		}
		provider := strings.ToLower(row[idx])
		for _, tok := range tokens {
			if strings.Contains(provider, tok) {
				return true
			}
		}
		return false
	})
}
