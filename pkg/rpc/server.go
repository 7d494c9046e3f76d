// Package rpc is the ingress/egress surface: it accepts JSON requests
// naming a configure_node, tx, or configure_qswitch call, hands them to a
// pool of dispatch workers through a steerable proxy, and separately
// drains the processor's outgoing buffer onto a publish broker so
// subscribers receive tx results as they are produced.
//
// The original listens on ZMQ ROUTER/DEALER/PUB sockets. Here the
// router/dealer pair collapses to an in-process transport.SteerableProxy
// and the PUB socket to an in-process transport.Broker; clients reach them
// over TCP listeners that carry newline-delimited JSON.
package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ornl-qci/eldispacho/pkg/action"
	"github.com/ornl-qci/eldispacho/pkg/diagnostics"
	"github.com/ornl-qci/eldispacho/pkg/log"
	"github.com/ornl-qci/eldispacho/pkg/metrics"
	"github.com/ornl-qci/eldispacho/pkg/processor"
	"github.com/ornl-qci/eldispacho/pkg/transport"
)

const (
	// MaxTxThreads bounds the ingress dispatch worker pool.
	MaxTxThreads = 16
	// MaxRxThreads bounds the egress drain worker pool.
	MaxRxThreads = 1
	// RxThreadWaitFor is how long the egress worker waits for the
	// processor's outgoing buffer to cross threshold before draining
	// whatever it has anyway.
	RxThreadWaitFor = 15 * time.Millisecond
	// SubmitTimeout bounds how long Submit waits for a worker to accept
	// and service a request before giving up.
	SubmitTimeout = 100 * time.Millisecond
)

type job struct {
	raw   []byte
	reply chan jobResult
}

type jobResult struct {
	resp []byte
	err  error
}

// Server is the ingress/egress RPC surface bound to one Processor.
type Server struct {
	proc   *processor.Processor
	diag   *diagnostics.Publisher
	broker *transport.Broker
	proxy  *transport.SteerableProxy[job]

	txListener net.Listener
	rxListener net.Listener

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewServer constructs a Server. broker is the egress publish sink; callers
// subscribe to it to receive tx results.
func NewServer(proc *processor.Processor, diag *diagnostics.Publisher, broker *transport.Broker) *Server {
	return &Server{
		proc:   proc,
		diag:   diag,
		broker: broker,
		proxy:  transport.NewSteerableProxy[job](256),
	}
}

// Listen binds the client-facing tx (request/reply) and rx (publish)
// sockets at txEndpoint and rxEndpoint, and launches rxWorkerCount egress
// drain workers plus txWorkerCount ingress dispatch workers to service
// them.
func (s *Server) Listen(rxEndpoint, txEndpoint string, rxWorkerCount, txWorkerCount int) error {
	if rxWorkerCount > MaxRxThreads || txWorkerCount > MaxTxThreads {
		return fmt.Errorf("rpc: worker count out of range (rx<=%d, tx<=%d)", MaxRxThreads, MaxTxThreads)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	txListener, err := net.Listen("tcp", txEndpoint)
	if err != nil {
		return fmt.Errorf("rpc: binding tx endpoint: %w", err)
	}
	rxListener, err := net.Listen("tcp", rxEndpoint)
	if err != nil {
		_ = txListener.Close()
		return fmt.Errorf("rpc: binding rx endpoint: %w", err)
	}
	s.txListener = txListener
	s.rxListener = rxListener

	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.proxy.Run()
	}()

	for i := 0; i < txWorkerCount; i++ {
		s.wg.Add(1)
		go s.txWork()
	}

	for i := 0; i < rxWorkerCount; i++ {
		s.wg.Add(1)
		go s.rxWork()
	}

	s.wg.Add(1)
	go s.acceptTxClients()

	s.wg.Add(1)
	go s.acceptRxSubscribers()

	s.running = true
	return nil
}

// Stop tears down every worker, listener, and the proxy, in reverse of
// startup order.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	if s.txListener != nil {
		_ = s.txListener.Close()
	}
	if s.rxListener != nil {
		_ = s.rxListener.Close()
	}
	s.mu.Unlock()

	s.proxy.Terminate()
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// acceptTxClients accepts tx-socket connections and services each on its
// own goroutine: one JSON request per line, one JSON response per line.
func (s *Server) acceptTxClients() {
	defer s.wg.Done()
	for {
		conn, err := s.txListener.Accept()
		if err != nil {
			return
		}
		go s.serveTxClient(conn)
	}
}

func (s *Server) serveTxClient(conn net.Conn) {
	defer conn.Close()

	requestID := uuid.New().String()
	logger := log.WithRequestID(requestID)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			resp, submitErr := s.Submit(line, SubmitTimeout)
			var encoded []byte
			if submitErr != nil {
				logger.Warn().Err(submitErr).Msg("tx request failed")
				encoded, _ = json.Marshal(Response{Error: submitErr.Error()})
			} else {
				encoded, _ = json.Marshal(resp)
			}
			encoded = append(encoded, '\n')
			if _, writeErr := conn.Write(encoded); writeErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// acceptRxSubscribers accepts rx-socket connections and streams every
// broker Frame to each as a line of JSON until the connection closes.
func (s *Server) acceptRxSubscribers() {
	defer s.wg.Done()
	for {
		conn, err := s.rxListener.Accept()
		if err != nil {
			return
		}
		go s.serveRxSubscriber(conn)
	}
}

func (s *Server) serveRxSubscriber(conn net.Conn) {
	defer conn.Close()

	sub := s.broker.Subscribe(64)
	defer s.broker.Unsubscribe(sub)

	for frame := range sub {
		encoded, err := json.Marshal(frame)
		if err != nil {
			log.WithComponent("rpc").Error().Err(err).Msg("encoding egress frame")
			continue
		}
		encoded = append(encoded, '\n')
		if _, err := conn.Write(encoded); err != nil {
			return
		}
	}
}

// Submit accepts a raw JSON request, routes it through the dispatch
// worker pool, and blocks for the reply or until timeout elapses.
func (s *Server) Submit(raw []byte, timeout time.Duration) (Response, error) {
	reply := make(chan jobResult, 1)

	select {
	case s.proxy.In() <- job{raw: raw, reply: reply}:
	case <-time.After(timeout):
		return Response{}, fmt.Errorf("rpc: submit timed out waiting for a free worker")
	}

	select {
	case res := <-reply:
		if res.err != nil {
			return Response{}, res.err
		}
		var resp Response
		if err := json.Unmarshal(res.resp, &resp); err != nil {
			return Response{}, err
		}
		return resp, nil
	case <-time.After(timeout):
		return Response{}, fmt.Errorf("rpc: submit timed out waiting for a reply")
	}
}

func (s *Server) txWork() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case j, ok := <-s.proxy.Out():
			if !ok {
				return
			}
			resp, err := s.handle(j.raw)
			j.reply <- jobResult{resp: resp, err: err}
		}
	}
}

func (s *Server) handle(raw []byte) ([]byte, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	resp, topic, err := s.dispatch(req)
	timer.ObserveDurationVec(metrics.RequestDuration, req.Method)

	if err != nil {
		metrics.RequestsTotal.WithLabelValues(req.Method, "error").Inc()
		return nil, err
	}

	metrics.RequestsTotal.WithLabelValues(req.Method, "ok").Inc()
	s.diag.Put(topic, raw)
	return resp, nil
}

func (s *Server) dispatch(req Request) ([]byte, action.Action, error) {
	var topic action.Action
	var err error

	switch req.Method {
	case action.ConfigureNode.String():
		topic = action.ConfigureNode
		err = s.handleConfigureNode(req)
	case action.Tx.String():
		topic = action.Tx
		err = s.handleTx(req)
	case action.ConfigureQswitch.String():
		topic = action.ConfigureQswitch
		err = s.handleConfigureQswitch(req)
	default:
		return nil, 0, errUnknownMethod(req.Method)
	}

	if err != nil {
		return nil, 0, err
	}

	resp, err := json.Marshal(Response{Result: true})
	return resp, topic, err
}

func (s *Server) handleConfigureNode(req Request) error {
	nodeID, err := paramNodeID(req.Parameters, 0)
	if err != nil {
		return err
	}
	component, err := paramString(req.Parameters, 1)
	if err != nil {
		return err
	}
	dialect, err := paramString(req.Parameters, 2)
	if err != nil {
		return err
	}
	circuit, err := paramString(req.Parameters, 3)
	if err != nil {
		return err
	}
	delimiter, err := paramByte(req.Parameters, 4)
	if err != nil {
		return err
	}

	item, err := s.proc.Preprocess(action.ConfigureNode, nodeID, component, [3]string{dialect, circuit, string(delimiter)})
	if err != nil {
		return err
	}
	s.proc.Incoming().Push(item)
	return nil
}

func (s *Server) handleTx(req Request) error {
	nodeID, err := paramNodeID(req.Parameters, 0)
	if err != nil {
		return err
	}
	dialect, err := paramString(req.Parameters, 1)
	if err != nil {
		return err
	}
	circuit, err := paramString(req.Parameters, 2)
	if err != nil {
		return err
	}
	delimiter, err := paramByte(req.Parameters, 3)
	if err != nil {
		return err
	}

	item, err := s.proc.Preprocess(action.Tx, nodeID, "", [3]string{dialect, circuit, string(delimiter)})
	if err != nil {
		return err
	}
	s.proc.Incoming().Push(item)
	return nil
}

func (s *Server) handleConfigureQswitch(req Request) error {
	nodeID, err := paramNodeID(req.Parameters, 0)
	if err != nil {
		return err
	}
	state, err := paramString(req.Parameters, 1)
	if err != nil {
		return err
	}

	item, err := s.proc.Preprocess(action.ConfigureQswitch, nodeID, "routing", [3]string{"", state, ""})
	if err != nil {
		return err
	}
	s.proc.Incoming().Push(item)
	return nil
}

func (s *Server) rxWork() {
	defer s.wg.Done()

	emptyCount := 0
	const emptyCountThreshold = 2

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		hit := s.proc.Outgoing().WaitUntilThreshold(RxThreadWaitFor)
		if !hit {
			emptyCount++
			if emptyCount < emptyCountThreshold {
				continue
			}
		}
		emptyCount = 0

		for _, msg := range s.proc.Outgoing().Drain() {
			body := msg.JSON()
			s.diag.Put(action.Rx, body)
			s.broker.Publish(transport.Frame{
				Topic: strconv.FormatUint(msg.NodeID, 10),
				Body:  body,
			})
		}
	}
}
