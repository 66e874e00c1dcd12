package node

import "strings"

// ExtractResourceURLs returns the external locators referenced by the tree:
// image sources and background-image urls with an http or https scheme.
// The result is deduplicated in first-occurrence order. Inline data URIs
// are skipped.
func ExtractResourceURLs(root *Node) []string {
	var urls []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if !isRemote(u) {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	root.Walk(func(n *Node) {
		if n.Type == KindImage {
			add(n.Src)
		}
		add(n.Style.BackgroundURL())
	})
	return urls
}

func isRemote(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
