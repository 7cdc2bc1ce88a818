package pure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/ports"
)

var _ ports.RecordStore = (*Client)(nil)

type pressMediaResponse struct {
	Items []pressMediaJSON `json:"items"`
}

type pressMediaJSON struct {
	Title struct {
		Text []struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"title"`
	Period struct {
		StartDate string `json:"startDate"`
	} `json:"period"`
	PersonAssociations []struct {
		Person *struct {
			ExternalID string `json:"externalId"`
			InternalID string `json:"internalId"`
			UUID       string `json:"uuid"`
		} `json:"person"`
	} `json:"personAssociations"`
}

// SearchPressMedia looks up existing press-media records matching query.
func (c *Client) SearchPressMedia(ctx context.Context, query string) ([]domain.PriorRecord, error) {
	var resp pressMediaResponse
	if err := c.do(ctx, http.MethodGet, "press-media", url.Values{"q": {query}}, nil, &resp); err != nil {
		return nil, fmt.Errorf("search press-media: %w", err)
	}

	records := make([]domain.PriorRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		rec := domain.PriorRecord{StartDate: item.Period.StartDate}
		if len(item.Title.Text) > 0 {
			rec.Title = item.Title.Text[0].Value
		}
		for _, assoc := range item.PersonAssociations {
			if assoc.Person == nil {
				continue
			}
			for _, id := range []string{assoc.Person.ExternalID, assoc.Person.InternalID, assoc.Person.UUID} {
				if id != "" {
					rec.PersonIDs = append(rec.PersonIDs, id)
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
