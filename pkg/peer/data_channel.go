package peer

import "github.com/pion/webrtc/v3"

// A data channel created by the peer. It leaves the peer state once it is closed.
type localDataChannel struct {
	*webrtc.DataChannel
	onClosed func()
}

func (c *localDataChannel) OnClose(f func()) {
	c.DataChannel.OnClose(func() {
		c.onClosed()
		f()
	})
}
