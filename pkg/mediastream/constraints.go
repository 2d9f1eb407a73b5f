package mediastream

import (
	"strconv"

	"github.com/thoas/go-funk"
)

// Constraint names understood by the peer connection.
const (
	ConstraintOfferToReceiveAudio    = "OfferToReceiveAudio"
	ConstraintOfferToReceiveVideo    = "OfferToReceiveVideo"
	ConstraintVoiceActivityDetection = "VoiceActivityDetection"
	ConstraintIceTransports          = "IceTransports"
	ConstraintIceRestart             = "IceRestart"
	ConstraintRequestIdentity        = "RequestIdentity"
)

var peerConnectionConstraints = []string{
	ConstraintOfferToReceiveAudio,
	ConstraintOfferToReceiveVideo,
	ConstraintVoiceActivityDetection,
	ConstraintIceTransports,
	ConstraintIceRestart,
	ConstraintRequestIdentity,
}

// A single constraint as specified by the page.
type Constraint struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Mandatory and optional media constraints.
type Constraints struct {
	Mandatory []Constraint `yaml:"mandatory"`
	Optional  []Constraint `yaml:"optional"`
}

// Returns a copy of the constraints that only contains the ones that the
// peer connection knows how to apply. Unknown names are dropped silently.
func (c Constraints) FilterPeerConnectionConstraints() Constraints {
	filter := func(constraints []Constraint) []Constraint {
		filtered := []Constraint{}
		for _, constraint := range constraints {
			if funk.ContainsString(peerConnectionConstraints, constraint.Name) {
				filtered = append(filtered, constraint)
			}
		}
		return filtered
	}

	return Constraints{
		Mandatory: filter(c.Mandatory),
		Optional:  filter(c.Optional),
	}
}

// Looks up a constraint value. Mandatory constraints take precedence over optional ones.
func (c Constraints) String(name string) (string, bool) {
	for _, constraints := range [][]Constraint{c.Mandatory, c.Optional} {
		for _, constraint := range constraints {
			if constraint.Name == name {
				return constraint.Value, true
			}
		}
	}

	return "", false
}

// Looks up a boolean constraint. Missing or malformed values are reported as not set.
func (c Constraints) Bool(name string) (value bool, found bool) {
	raw, found := c.String(name)
	if !found {
		return false, false
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}

	return value, true
}
