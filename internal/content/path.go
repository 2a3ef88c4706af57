package content

import "strings"

const (
	ipfsScheme  = "ipfs://"
	ipfsSegment = "/ipfs/"
)

// CanonicalPath reduces a content identifier to the path fetched from a gateway.
//
//	"ipfs://bafy/meta.json"             -> "bafy/meta.json"
//	"https://gw.example/ipfs/bafy"      -> "bafy"
//	"https://example.com/listing.json"  -> "https://example.com/listing.json"
//	"bafy"                              -> "bafy"
func CanonicalPath(identifier string) string {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return ""
	}
	if isHTTPURL(id) {
		if _, after, ok := strings.Cut(id, ipfsSegment); ok {
			return after
		}
		return id
	}
	if after, ok := strings.CutPrefix(id, ipfsScheme); ok {
		return after
	}
	return id
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
