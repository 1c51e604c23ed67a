// Package location serves the static property reference hierarchy:
// State → District → Mandal → Village → {SurveyNumber | DoorNumber}.
//
// The dataset is read-only and loaded once at startup from the embedded
// JSON. Leaves carry the government value used by the fee engine; states
// carry the stamp duty rate.
package location

import (
	_ "embed"
	"encoding/json"
	"fmt"

	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
)

//go:embed data.json
var rawDataset []byte

// PropertyRecord is a leaf entry identified by survey or door number.
type PropertyRecord struct {
	Number    string `json:"number"`
	GovtValue int64  `json:"govt_value"`
}

// Village holds the two mutually exclusive property identification views.
type Village struct {
	Name          string           `json:"name"`
	SurveyNumbers []PropertyRecord `json:"survey_numbers"`
	DoorNumbers   []PropertyRecord `json:"door_numbers"`
}

// Mandal groups villages. Known as taluka in some states; the draft stores
// the field as taluka, the dataset uses mandal.
type Mandal struct {
	Name     string    `json:"name"`
	Villages []Village `json:"villages"`
}

// District groups mandals.
type District struct {
	Name    string   `json:"name"`
	Mandals []Mandal `json:"mandals"`
}

// State is the hierarchy root and carries the stamp duty rate in percent.
type State struct {
	Name          string     `json:"name"`
	StampDutyRate float64    `json:"stamp_duty_rate"`
	Districts     []District `json:"districts"`
}

// Dataset is the loaded reference hierarchy.
type Dataset struct {
	states []State
}

// Load parses the embedded reference data. Called once from main.
func Load() (*Dataset, error) {
	var doc struct {
		States []State `json:"states"`
	}
	if err := json.Unmarshal(rawDataset, &doc); err != nil {
		return nil, fmt.Errorf("parse location dataset: %w", err)
	}
	if len(doc.States) == 0 {
		return nil, fmt.Errorf("location dataset is empty")
	}
	return &Dataset{states: doc.States}, nil
}

// States lists all state names.
func (d *Dataset) States() []string {
	out := make([]string, 0, len(d.states))
	for _, s := range d.states {
		out = append(out, s.Name)
	}
	return out
}

// StampDutyRate returns the stamp duty rate for a state.
func (d *Dataset) StampDutyRate(state string) (float64, error) {
	s, err := d.state(state)
	if err != nil {
		return 0, err
	}
	return s.StampDutyRate, nil
}

// Districts lists district names under a state.
func (d *Dataset) Districts(state string) ([]string, error) {
	s, err := d.state(state)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.Districts))
	for _, dist := range s.Districts {
		out = append(out, dist.Name)
	}
	return out, nil
}

// Mandals lists mandal names under a district.
func (d *Dataset) Mandals(state, district string) ([]string, error) {
	dist, err := d.district(state, district)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(dist.Mandals))
	for _, m := range dist.Mandals {
		out = append(out, m.Name)
	}
	return out, nil
}

// Villages lists village names under a mandal.
func (d *Dataset) Villages(state, district, mandal string) ([]string, error) {
	m, err := d.mandal(state, district, mandal)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m.Villages))
	for _, v := range m.Villages {
		out = append(out, v.Name)
	}
	return out, nil
}

// PropertyNumbers lists the identification numbers in the requested mode.
func (d *Dataset) PropertyNumbers(state, district, mandal, village string, mode id.PropertyIDMode) ([]string, error) {
	v, err := d.village(state, district, mandal, village)
	if err != nil {
		return nil, err
	}
	records := v.SurveyNumbers
	if mode == id.PropertyByDoorNumber {
		records = v.DoorNumbers
	}
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Number)
	}
	return out, nil
}

// GovtValue resolves the government value for a concrete property selection.
func (d *Dataset) GovtValue(state, district, mandal, village string, mode id.PropertyIDMode, number string) (int64, error) {
	v, err := d.village(state, district, mandal, village)
	if err != nil {
		return 0, err
	}
	records := v.SurveyNumbers
	if mode == id.PropertyByDoorNumber {
		records = v.DoorNumbers
	}
	for _, r := range records {
		if r.Number == number {
			return r.GovtValue, nil
		}
	}
	return 0, sentinel.ErrNotFound
}

func (d *Dataset) state(name string) (*State, error) {
	for i := range d.states {
		if d.states[i].Name == name {
			return &d.states[i], nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (d *Dataset) district(state, name string) (*District, error) {
	s, err := d.state(state)
	if err != nil {
		return nil, err
	}
	for i := range s.Districts {
		if s.Districts[i].Name == name {
			return &s.Districts[i], nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (d *Dataset) mandal(state, district, name string) (*Mandal, error) {
	dist, err := d.district(state, district)
	if err != nil {
		return nil, err
	}
	for i := range dist.Mandals {
		if dist.Mandals[i].Name == name {
			return &dist.Mandals[i], nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (d *Dataset) village(state, district, mandal, name string) (*Village, error) {
	m, err := d.mandal(state, district, mandal)
	if err != nil {
		return nil, err
	}
	for i := range m.Villages {
		if m.Villages[i].Name == name {
			return &m.Villages[i], nil
		}
	}
	return nil, sentinel.ErrNotFound
}
