package rtc

import (
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/pion/webrtc/v3"
)

// Client is implemented by the engine. Every method is invoked on the designated thread.
type Client interface {
	DidChangeSignalingState(state SignalingState)
	DidAddRemoteStream(stream *mediastream.Stream)
	DidRemoveRemoteStream(stream *mediastream.Stream)
	NegotiationNeeded()
	// A nil candidate means that ICE gathering is complete.
	DidGenerateICECandidate(candidate *ICECandidateDescriptor)
	DidChangeICEGatheringState(state ICEGatheringState)
	DidChangeICEConnectionState(state ICEConnectionState)
	DidAddRemoteDataChannel(channel *DataChannelHandler)
}

// ICE candidate in the form expected by the engine.
type ICECandidateDescriptor struct {
	Candidate     string
	SDPMid        string
	SDPMLineIndex uint16
}

// Converts the candidate into its wire representation.
func NewICECandidateDescriptor(candidate ForeignCandidate) *ICECandidateDescriptor {
	init := candidate.ToJSON()

	descriptor := &ICECandidateDescriptor{Candidate: init.Candidate}
	if init.SDPMid != nil {
		descriptor.SDPMid = *init.SDPMid
	}
	if init.SDPMLineIndex != nil {
		descriptor.SDPMLineIndex = *init.SDPMLineIndex
	}

	return descriptor
}

// Converts the descriptor back into the form understood by the WebRTC stack.
func (d *ICECandidateDescriptor) ToWebRTC() webrtc.ICECandidateInit {
	mid, index := d.SDPMid, d.SDPMLineIndex
	return webrtc.ICECandidateInit{
		Candidate:     d.Candidate,
		SDPMid:        &mid,
		SDPMLineIndex: &index,
	}
}
