package services

import (
	"net/url"
	"strconv"
	"strings"
)

// LinkBuilder renders the tokenized admin decision links shown in previews.
type LinkBuilder struct {
	baseURL string
	token   string
}

func NewLinkBuilder(baseURL, token string) *LinkBuilder {
	return &LinkBuilder{baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

func (b *LinkBuilder) ApproveURL(batchID string) string {
	return b.build("/admin/approve_batch", url.Values{"batch_id": {batchID}})
}

func (b *LinkBuilder) RejectURL(batchID string) string {
	return b.build("/admin/reject_batch", url.Values{"batch_id": {batchID}})
}

func (b *LinkBuilder) RemoveURL(batchID string, itemID int64) string {
	return b.build("/admin/remove_item", url.Values{
		"batch_id": {batchID},
		"item_id":  {strconv.FormatInt(itemID, 10)},
	})
}

// without a base URL the link stays relative
func (b *LinkBuilder) build(path string, q url.Values) string {
	q.Set("token", b.token)
	return b.baseURL + path + "?" + q.Encode()
}
