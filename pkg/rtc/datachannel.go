package rtc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nix-port/rtcbridge/pkg/mainthread"
	"github.com/nix-port/rtcbridge/pkg/worker"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

var (
	ErrDataChannelNotReady = errors.New("data channel is not ready")
	ErrCantSendData        = errors.New("can't send data over data channel")
)

// DataChannelClient is implemented by the engine. Every method is invoked on the designated thread.
type DataChannelClient interface {
	DidChangeReadyState(state DataChannelState)
	DidReceiveStringData(data string)
	DidReceiveRawData(data []byte)
	DidDetectError(err error)
}

// An outgoing message, either text or binary.
type dataChannelMessage struct {
	text   string
	data   []byte
	isText bool
}

// DataChannelHandler exposes a data channel of the WebRTC stack to the engine.
// Outgoing messages are handed to a worker so that a slow transport never blocks the engine.
// Events that arrive before the client is set are kept and delivered once it is.
type DataChannelHandler struct {
	channel  ForeignDataChannel
	executor mainthread.Executor
	logger   *logrus.Entry
	sender   *worker.Worker[dataChannelMessage]

	mutex   sync.Mutex
	client  DataChannelClient
	pending []func(DataChannelClient)
}

// Wraps the channel and subscribes to its events right away, the WebRTC stack drops
// incoming messages while no handler is registered.
func NewDataChannelHandler(channel ForeignDataChannel, executor mainthread.Executor, logger *logrus.Entry) *DataChannelHandler {
	logger = logger.WithField("label", channel.Label())

	sender := worker.StartWorker(worker.Config[dataChannelMessage]{
		ChannelSize: 64,
		OnTask: func(message dataChannelMessage) {
			var err error
			if message.isText {
				err = channel.SendText(message.text)
			} else {
				err = channel.Send(message.data)
			}

			if err != nil {
				logger.WithError(err).Error("failed to send data channel message")
			}
		},
	})

	handler := &DataChannelHandler{
		channel:  channel,
		executor: executor,
		logger:   logger,
		sender:   sender,
	}

	channel.OnOpen(func() {
		logger.Debug("data channel opened")
		handler.dispatch(func(client DataChannelClient) { client.DidChangeReadyState(DataChannelStateOpen) })
	})

	channel.OnClose(func() {
		logger.Info("data channel closed")
		sender.Stop()
		handler.dispatch(func(client DataChannelClient) { client.DidChangeReadyState(DataChannelStateClosed) })
	})

	channel.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			text := string(msg.Data)
			handler.dispatch(func(client DataChannelClient) { client.DidReceiveStringData(text) })
			return
		}

		data := msg.Data
		handler.dispatch(func(client DataChannelClient) { client.DidReceiveRawData(data) })
	})

	channel.OnError(func(err error) {
		logger.WithError(err).Error("data channel error")
		handler.dispatch(func(client DataChannelClient) { client.DidDetectError(err) })
	})

	return handler
}

// Sets the client that receives the events of the channel. Events that arrived
// earlier are delivered first, in the order they arrived.
func (h *DataChannelHandler) SetClient(client DataChannelClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.client = client
	for _, event := range h.pending {
		h.post(event, client)
	}
	h.pending = nil
}

// Posts the event to the client or keeps it until there is one.
// Posting under the lock keeps the events in order.
func (h *DataChannelHandler) dispatch(event func(DataChannelClient)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.client == nil {
		h.pending = append(h.pending, event)
		return
	}

	h.post(event, h.client)
}

func (h *DataChannelHandler) post(event func(DataChannelClient), client DataChannelClient) {
	h.executor.Post(func() { event(client) })
}

func (h *DataChannelHandler) Label() string {
	return h.channel.Label()
}

func (h *DataChannelHandler) Ordered() bool {
	return h.channel.Ordered()
}

// Zero if unlimited.
func (h *DataChannelHandler) MaxRetransmitTime() uint16 {
	return valueOrZero(h.channel.MaxPacketLifeTime())
}

// Zero if unlimited.
func (h *DataChannelHandler) MaxRetransmits() uint16 {
	return valueOrZero(h.channel.MaxRetransmits())
}

func (h *DataChannelHandler) Protocol() string {
	return h.channel.Protocol()
}

func (h *DataChannelHandler) Negotiated() bool {
	return h.channel.Negotiated()
}

// Zero until the channel has been assigned an id.
func (h *DataChannelHandler) ID() uint16 {
	return valueOrZero(h.channel.ID())
}

func (h *DataChannelHandler) BufferedAmount() uint64 {
	return h.channel.BufferedAmount()
}

func (h *DataChannelHandler) ReadyState() DataChannelState {
	return DataChannelStateFromWebRTC(h.channel.ReadyState())
}

// Queues a text message.
func (h *DataChannelHandler) SendStringData(text string) error {
	return h.send(dataChannelMessage{text: text, isText: true})
}

// Queues a binary message. The data is copied.
func (h *DataChannelHandler) SendRawData(data []byte) error {
	return h.send(dataChannelMessage{data: append([]byte(nil), data...)})
}

func (h *DataChannelHandler) send(message dataChannelMessage) error {
	if h.channel.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrDataChannelNotReady
	}

	if err := h.sender.Send(message); err != nil {
		h.logger.WithError(err).Warn("dropping data channel message")
		return fmt.Errorf("%w: %s", ErrCantSendData, err)
	}

	return nil
}

// Closes the channel. Messages that are already queued are still sent if possible.
func (h *DataChannelHandler) Close() {
	h.sender.Stop()

	// Let the queued messages go out before the channel goes away.
	select {
	case <-h.sender.Done():
	case <-time.After(time.Second):
		h.logger.Warn("timed out waiting for queued messages")
	}

	if err := h.channel.Close(); err != nil {
		h.logger.WithError(err).Error("failed to close data channel")
	}
}

func valueOrZero(value *uint16) uint16 {
	if value == nil {
		return 0
	}
	return *value
}
