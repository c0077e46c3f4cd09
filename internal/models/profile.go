package models

import (
	"encoding/json"
	"fmt"
)

// ProfileDocName is the fixed document name under an identity's scope.
const ProfileDocName = "profile"

// Text is a profile value. Forms submit some fields (height, weight,
// sleep hours) as numbers and others as strings; both are kept as text.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or number")
	}
	*t = Text(n.String())
	return nil
}

// String returns "" for a nil receiver.
func (t *Text) String() string {
	if t == nil {
		return ""
	}
	return string(*t)
}

func T(s string) *Text {
	v := Text(s)
	return &v
}

// Profile is the per-identity health questionnaire. A nil field means
// "not submitted" so a save only touches the fields it carries.
type Profile struct {
	// identity
	FullName *Text `json:"fullName,omitempty"`
	DOB      *Text `json:"dob,omitempty"`
	Gender   *Text `json:"gender,omitempty"`
	Phone    *Text `json:"phone,omitempty"`
	Location *Text `json:"location,omitempty"`

	// metrics
	Height             *Text `json:"height,omitempty" validate:"omitempty,numeric"`
	Weight             *Text `json:"weight,omitempty" validate:"omitempty,numeric"`
	BloodGroup         *Text `json:"bloodGroup,omitempty"`
	Allergies          *Text `json:"allergies,omitempty"`
	ChronicDiseases    *Text `json:"chronicDiseases,omitempty"`
	PastMedicalHistory *Text `json:"pastMedicalHistory,omitempty"`

	// lifestyle
	SmokingStatus      *Text `json:"smokingStatus,omitempty"`
	AlcoholConsumption *Text `json:"alcoholConsumption,omitempty"`
	DietaryHabits      *Text `json:"dietaryHabits,omitempty"`
	Exercise           *Text `json:"exercise,omitempty"`
	SleepHours         *Text `json:"sleepHours,omitempty" validate:"omitempty,numeric"`
	StressLevel        *Text `json:"stressLevel,omitempty"`
}

// DefaultProfile is the form state before anything is loaded, and the
// state restored on logout.
func DefaultProfile() Profile {
	return Profile{
		FullName:           T(""),
		DOB:                T(""),
		Gender:             T("Male"),
		Phone:              T(""),
		Location:           T(""),
		Height:             T(""),
		Weight:             T(""),
		BloodGroup:         T(""),
		Allergies:          T(""),
		ChronicDiseases:    T(""),
		PastMedicalHistory: T(""),
		SmokingStatus:      T("Never"),
		AlcoholConsumption: T(""),
		DietaryHabits:      T(""),
		Exercise:           T(""),
		SleepHours:         T(""),
		StressLevel:        T("Low"),
	}
}

// fields lists every profile field in form order.
func (p *Profile) fields() []**Text {
	return []**Text{
		&p.FullName, &p.DOB, &p.Gender, &p.Phone, &p.Location,
		&p.Height, &p.Weight, &p.BloodGroup, &p.Allergies, &p.ChronicDiseases, &p.PastMedicalHistory,
		&p.SmokingStatus, &p.AlcoholConsumption, &p.DietaryHabits, &p.Exercise, &p.SleepHours, &p.StressLevel,
	}
}

// Merge returns p with every non-nil field of patch applied on top.
func (p Profile) Merge(patch Profile) Profile {
	out := p
	dst := out.fields()
	for i, src := range patch.fields() {
		if *src != nil {
			v := **src
			*dst[i] = &v
		}
	}
	return out
}

// WithDefaults fills every unset field from DefaultProfile.
func (p Profile) WithDefaults() Profile {
	return DefaultProfile().Merge(p)
}

// IsEmpty reports whether no field was submitted.
func (p Profile) IsEmpty() bool {
	for _, f := range p.fields() {
		if *f != nil {
			return false
		}
	}
	return true
}

type ProfileResponse struct {
	Found        bool          `json:"found"`
	Profile      Profile       `json:"profile"`
	Notification *Notification `json:"notification,omitempty"`
}
