package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/rigctl/pkg/link/mqtt"
	"github.com/robotalks/rigctl/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/rig/"
)

func init() {
	if val := os.Getenv("RIG_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.TopicMeta):
			if len(payload) == 0 {
				log.Printf("%s: offline", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/"+mqtt.TopicTxn):
			ev, err := telemetry.DecodeEvent(payload)
			if err != nil {
				log.Printf("%s: bad event: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, ev)
		default:
			log.Printf("%s: %q", topic, payload)
		}
	}))
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
