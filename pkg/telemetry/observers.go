package telemetry

import (
	"github.com/golang/glog"

	"github.com/robotalks/rigctl/pkg/link/mqtt"
	"github.com/robotalks/rigctl/pkg/regbus"
)

// Logger traces transactions with glog at verbosity 2.
type Logger struct {
	Names Names
}

// TransactionDone implements regbus.Observer.
func (l *Logger) TransactionDone(txn regbus.Transaction) {
	if glog.V(2) {
		glog.Infof("txn %s", NewEvent(txn, l.Names))
	}
}

// Publisher publishes transactions to <prefix><id>/txn.
type Publisher struct {
	Queue *mqtt.Queue
	ID    string
	Names Names
}

// TransactionDone implements regbus.Observer. Publishing doesn't wait
// for the broker.
func (p *Publisher) TransactionDone(txn regbus.Transaction) {
	payload, err := NewEvent(txn, p.Names).Encode()
	if err != nil {
		glog.Errorf("encode event: %v", err)
		return
	}
	p.Queue.Pub(mqtt.Topic(p.ID, mqtt.TopicTxn), payload)
}
