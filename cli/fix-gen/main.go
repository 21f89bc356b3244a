package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"
)

/*
Fix generator.

Util sends synthetic JSON fix datagrams to a trackd server, either one
shot or as a random walk at a fixed interval.

Usage:
  -server string
    	Trackd UDP address in format <ip>:<port> (default "localhost:5001")
  -device string
    	Device identifier, empty for the implicit default device
  -lat float
    	Starting latitude
  -lon float
    	Starting longitude
  -time string
    	Timestamp in RFC 3339 format, empty for current time
  -count int
    	Number of fixes to send (default 1)
  -interval int
    	Milliseconds between fixes (default 1000)

Example

```
./fix-gen --server localhost:5001 --lat 40.4168 --lon -3.7038 --count 60 --interval 1000
```
*/

type fixDatagram struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Time   int64   `json:"time"`
	Device string  `json:"device,omitempty"`
}

func main() {
	server := ""
	device := ""
	lat := 0.0
	lon := 0.0
	ts := ""
	count := 0
	interval := 0

	flag.StringVar(&server, "server", "localhost:5001", "Trackd UDP address in format <ip>:<port>")
	flag.StringVar(&device, "device", "", "Device identifier, empty for the implicit default device")
	flag.Float64Var(&lat, "lat", 0, "Starting latitude")
	flag.Float64Var(&lon, "lon", 0, "Starting longitude")
	flag.StringVar(&ts, "time", "", "Timestamp in RFC 3339 format, empty for current time")
	flag.IntVar(&count, "count", 1, "Number of fixes to send")
	flag.IntVar(&interval, "interval", 1000, "Milliseconds between fixes")

	flag.Parse()

	when := time.Now()
	if ts != "" {
		var err error
		if when, err = time.Parse(time.RFC3339, ts); err != nil {
			fmt.Println("Invalid timestamp, see help (-h)")
			os.Exit(1)
		}
	}

	conn, err := net.Dial("udp", server)
	if err != nil {
		fmt.Printf("Failed to dial %s: %v\n", server, err)
		os.Exit(1)
	}
	defer conn.Close()

	for i := 0; i < count; i++ {
		payload, err := json.Marshal(fixDatagram{
			Lat:    lat,
			Lon:    lon,
			Time:   when.UnixMilli(),
			Device: device,
		})
		if err != nil {
			fmt.Printf("Failed to encode fix: %v\n", err)
			os.Exit(1)
		}

		if _, err := conn.Write(payload); err != nil {
			fmt.Printf("Failed to send fix: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sent %s\n", payload)

		if i == count-1 {
			break
		}

		// Random walk of roughly a few meters per step.
		lat += (rand.Float64() - 0.5) * 0.0001
		lon += (rand.Float64() - 0.5) * 0.0001
		when = when.Add(time.Duration(interval) * time.Millisecond)
		time.Sleep(time.Duration(interval) * time.Millisecond)
	}
}
