package models

// BatchPreview is what a human sees when asked to approve or reject a batch.
type BatchPreview struct {
	BatchID    string
	ApproveURL string
	RejectURL  string
	Items      []PreviewItem
}

// PreviewItem is one line of a batch preview.
type PreviewItem struct {
	ItemID        int64
	PostID        string
	PostLink      string
	CommentText   string
	ProposedReply string
	ImpactScore   *int
	Status        ItemStatus
	RemoveURL     string
}

// PostGroup holds the preview items of a single post, in preview order.
type PostGroup struct {
	PostID   string
	PostLink string
	Items    []PreviewItem
}

// GroupByPost groups items by post, keeping first-seen post order.
func (p *BatchPreview) GroupByPost() []PostGroup {
	var groups []PostGroup
	index := make(map[string]int)
	for _, it := range p.Items {
		i, ok := index[it.PostID]
		if !ok {
			i = len(groups)
			index[it.PostID] = i
			groups = append(groups, PostGroup{PostID: it.PostID, PostLink: it.PostLink})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
