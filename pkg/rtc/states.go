package rtc

import (
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/pion/webrtc/v3"
)

// The states below are the ones exposed to the engine, the client never sees the enums of pion.

type SignalingState int

const (
	SignalingStateStable SignalingState = iota
	SignalingStateHaveLocalOffer
	SignalingStateHaveRemoteOffer
	SignalingStateHaveLocalPrAnswer
	SignalingStateHaveRemotePrAnswer
	SignalingStateClosed
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingStateHaveLocalPrAnswer:
		return "have-local-pranswer"
	case SignalingStateHaveRemotePrAnswer:
		return "have-remote-pranswer"
	case SignalingStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type ICEGatheringState int

const (
	ICEGatheringStateNew ICEGatheringState = iota
	ICEGatheringStateGathering
	ICEGatheringStateComplete
)

func (s ICEGatheringState) String() string {
	switch s {
	case ICEGatheringStateNew:
		return "new"
	case ICEGatheringStateGathering:
		return "gathering"
	case ICEGatheringStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

type ICEConnectionState int

const (
	ICEConnectionStateNew ICEConnectionState = iota
	ICEConnectionStateChecking
	ICEConnectionStateConnected
	ICEConnectionStateCompleted
	ICEConnectionStateFailed
	ICEConnectionStateDisconnected
	ICEConnectionStateClosed
)

func (s ICEConnectionState) String() string {
	switch s {
	case ICEConnectionStateNew:
		return "new"
	case ICEConnectionStateChecking:
		return "checking"
	case ICEConnectionStateConnected:
		return "connected"
	case ICEConnectionStateCompleted:
		return "completed"
	case ICEConnectionStateFailed:
		return "failed"
	case ICEConnectionStateDisconnected:
		return "disconnected"
	case ICEConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type DataChannelState int

const (
	DataChannelStateConnecting DataChannelState = iota
	DataChannelStateOpen
	DataChannelStateClosing
	DataChannelStateClosed
)

func (s DataChannelState) String() string {
	switch s {
	case DataChannelStateConnecting:
		return "connecting"
	case DataChannelStateOpen:
		return "open"
	case DataChannelStateClosing:
		return "closing"
	case DataChannelStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Unknown pion values map to the "initial" state of the respective enum.

func SignalingStateFromWebRTC(state webrtc.SignalingState) SignalingState {
	switch state {
	case webrtc.SignalingStateHaveLocalOffer:
		return SignalingStateHaveLocalOffer
	case webrtc.SignalingStateHaveRemoteOffer:
		return SignalingStateHaveRemoteOffer
	case webrtc.SignalingStateHaveLocalPranswer:
		return SignalingStateHaveLocalPrAnswer
	case webrtc.SignalingStateHaveRemotePranswer:
		return SignalingStateHaveRemotePrAnswer
	case webrtc.SignalingStateClosed:
		return SignalingStateClosed
	default:
		return SignalingStateStable
	}
}

// The `closed` gatherer state has no counterpart in the engine, it's reported as complete.
func ICEGatheringStateFromWebRTC(state webrtc.ICEGathererState) ICEGatheringState {
	switch state {
	case webrtc.ICEGathererStateGathering:
		return ICEGatheringStateGathering
	case webrtc.ICEGathererStateComplete, webrtc.ICEGathererStateClosed:
		return ICEGatheringStateComplete
	default:
		return ICEGatheringStateNew
	}
}

func ICEConnectionStateFromWebRTC(state webrtc.ICEConnectionState) ICEConnectionState {
	switch state {
	case webrtc.ICEConnectionStateChecking:
		return ICEConnectionStateChecking
	case webrtc.ICEConnectionStateConnected:
		return ICEConnectionStateConnected
	case webrtc.ICEConnectionStateCompleted:
		return ICEConnectionStateCompleted
	case webrtc.ICEConnectionStateFailed:
		return ICEConnectionStateFailed
	case webrtc.ICEConnectionStateDisconnected:
		return ICEConnectionStateDisconnected
	case webrtc.ICEConnectionStateClosed:
		return ICEConnectionStateClosed
	default:
		return ICEConnectionStateNew
	}
}

func DataChannelStateFromWebRTC(state webrtc.DataChannelState) DataChannelState {
	switch state {
	case webrtc.DataChannelStateOpen:
		return DataChannelStateOpen
	case webrtc.DataChannelStateClosing:
		return DataChannelStateClosing
	case webrtc.DataChannelStateClosed:
		return DataChannelStateClosed
	default:
		return DataChannelStateConnecting
	}
}

// A track that is still initializing has not produced any media yet, the engine sees it as muted.
func ReadyStateFromTrackState(state TrackState) mediastream.ReadyState {
	switch state {
	case TrackStateLive:
		return mediastream.ReadyStateLive
	case TrackStateEnded, TrackStateFailed:
		return mediastream.ReadyStateEnded
	default:
		return mediastream.ReadyStateMuted
	}
}
