package util

import "fmt"

func ExampleSortedKeys() {
	probes := map[string]string{
		"Memory":           "41.5",
		"CPU":              "3.20",
		"Local IP address": "192.168.1.20",
		"Internet access":  "OK",
	}
	for _, name := range SortedKeys(probes) {
		fmt.Printf("%s: %s\n", name, probes[name])
	}
	// Output:
	// CPU: 3.20
	// Internet access: OK
	// Local IP address: 192.168.1.20
	// Memory: 41.5
}
