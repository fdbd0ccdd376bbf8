package notion

import (
	"context"

	"go.uber.org/zap"
)

const discoverySearchSize = 5

// DiscoverDataSource finds the data source embedded in pageID, if any.
// Candidates come from a data-source search. A candidate whose parent
// information points at a different page is rejected; the first remaining
// candidate that answers a one-row trial query wins. Returns "" when nothing
// matches or the search fails.
func (l *Loader) DiscoverDataSource(ctx context.Context, pageID string) string {
	target, err := CompactID(pageID)
	if err != nil {
		return ""
	}
	list, err := l.client.SearchDataSources(ctx, discoverySearchSize)
	if err != nil {
		l.logger.Debug("data source search failed", zap.String("page_id", pageID), zap.Error(err))
		return ""
	}
	for i := range list.Results {
		ds := &list.Results[i]
		if ds.ID == "" || !parentMatches(ds, target) {
			continue
		}
		if _, err := l.client.QueryDataSource(ctx, ds.ID, "", 1); err != nil {
			l.logger.Debug("data source candidate rejected", zap.String("data_source_id", ds.ID), zap.Error(err))
			continue
		}
		l.logger.Debug("discovered data source", zap.String("page_id", pageID), zap.String("data_source_id", ds.ID))
		return ds.ID
	}
	return ""
}

// parentMatches reports whether ds belongs under the compact page id target.
// Candidates without any parent information are accepted.
func parentMatches(ds *DataSource, target string) bool {
	ids := []string{
		ds.DatabaseParent.PageID,
		ds.DatabaseParent.BlockID,
		ds.Parent.PageID,
		ds.Parent.DatabaseID,
	}
	known := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		known = true
		if c, err := CompactID(id); err == nil && c == target {
			return true
		}
	}
	return !known
}
