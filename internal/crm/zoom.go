package crm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/pkg/zoom"
)

// ZoomSource pulls approved webinar registrants as source records.
type ZoomSource struct {
	client    zoom.Client
	webinarID string
}

// NewZoomSource creates a source over the registrant list of one webinar.
func NewZoomSource(client zoom.Client, webinarID string) *ZoomSource {
	return &ZoomSource{client: client, webinarID: webinarID}
}

func (s *ZoomSource) Name() string { return "zoom" }

func (s *ZoomSource) FetchRecords(ctx context.Context) ([]model.SourceRecord, error) {
	registrants, err := s.client.ListRegistrants(ctx, s.webinarID)
	if err != nil {
		return nil, eris.Wrap(err, "crm: zoom fetch registrants")
	}

	records := make([]model.SourceRecord, 0, len(registrants))
	for _, r := range registrants {
		records = append(records, registrantToRecord(r))
	}
	return records, nil
}

func registrantToRecord(r zoom.Registrant) model.SourceRecord {
	return model.SourceRecord{
		ExternalID: r.ID,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Phone:      r.Phone,
		Title:      r.JobTitle,
		Company:    r.Org,
	}
}
