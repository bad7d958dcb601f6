package metadata

import (
	"regexp"
	"strings"
)

// DefaultImage is shown when a token has no usable icon
const DefaultImage = "/default-token-icon.svg"

const (
	ipfsGateway  = "https://cloudflare-ipfs.com/ipfs/"
	githubRaw    = "https://raw.githubusercontent.com/solana-labs/token-list/main/"
	githubMirror = "https://cdn.jsdelivr.net/gh/solana-labs/token-list@main/"
)

var cidPattern = regexp.MustCompile(`^Qm[1-9A-Za-z]{44}$`)

// NormalizeImageURL rewrites a token icon URL into one that can be served
// directly. Unrecognised formats map to DefaultImage.
func NormalizeImageURL(url string) string {
	switch {
	case url == "":
		return DefaultImage
	case strings.HasPrefix(url, "https://"):
		if strings.HasPrefix(url, githubRaw) {
			return githubMirror + strings.TrimPrefix(url, githubRaw)
		}
		return url
	case strings.HasPrefix(url, "ipfs://"):
		return ipfsGateway + strings.TrimPrefix(url, "ipfs://")
	case cidPattern.MatchString(url):
		return ipfsGateway + url
	case strings.HasPrefix(url, "http://") && strings.Contains(url, "arweave.net"):
		return "https://" + strings.TrimPrefix(url, "http://")
	default:
		return DefaultImage
	}
}
