package action

import "fmt"

// UpdateStatus changes one item's service status.
type UpdateStatus struct {
	TagID  string `json:"tag_id"`
	Status string `json:"status"`
}

func (a *UpdateStatus) ActionName() string { return "update_status" }
func (a *UpdateStatus) Route() string      { return "/api/items/status" }

func (a *UpdateStatus) Validate() error {
	if err := requireField("tag_id", a.TagID); err != nil {
		return err
	}
	return requireField("status", a.Status)
}

func (a *UpdateStatus) Body() ([]byte, error) {
	return DefaultBody(a)
}

// UpdateNotes replaces one item's free-form notes. Empty notes are allowed;
// clearing notes is a legitimate edit.
type UpdateNotes struct {
	TagID string `json:"tag_id"`
	Notes string `json:"notes"`
}

func (a *UpdateNotes) ActionName() string { return "update_notes" }
func (a *UpdateNotes) Route() string      { return "/api/items/notes" }

func (a *UpdateNotes) Validate() error {
	return requireField("tag_id", a.TagID)
}

func (a *UpdateNotes) Body() ([]byte, error) {
	return DefaultBody(a)
}

// UpdateBinLocation moves one item to a new bin.
type UpdateBinLocation struct {
	TagID string `json:"tag_id"`
	Bin   string `json:"bin_location"`
}

func (a *UpdateBinLocation) ActionName() string { return "update_bin_location" }
func (a *UpdateBinLocation) Route() string      { return "/api/items/bin" }

func (a *UpdateBinLocation) Validate() error {
	if err := requireField("tag_id", a.TagID); err != nil {
		return err
	}
	return requireField("bin_location", a.Bin)
}

func (a *UpdateBinLocation) Body() ([]byte, error) {
	return DefaultBody(a)
}

// BatchSync pushes the selected items to the service-side sync job. This is
// the action most exposed to rapid repeated clicks, so callers wrap its
// submission in the request gate.
type BatchSync struct {
	TagIDs []string `json:"tag_ids"`
}

func (a *BatchSync) ActionName() string { return "batch_sync" }
func (a *BatchSync) Route() string      { return "/api/sync" }

func (a *BatchSync) Validate() error {
	if len(a.TagIDs) == 0 {
		return fmt.Errorf("%w: no items selected", ErrInvalid)
	}
	for _, id := range a.TagIDs {
		if id == "" {
			return fmt.Errorf("%w: empty tag_id in selection", ErrInvalid)
		}
	}
	return nil
}

func (a *BatchSync) Body() ([]byte, error) {
	return DefaultBody(a)
}
