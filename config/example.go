package config

import "strings"

var ExampleYaml = `node:
  id: greenhouse-1
  hub: https://hub.example.com
controller:
  vendor_id: "2341"
  product_id: "0043"
  baud: 9600
  read_timeout: 10s
  warmup_timeout: 0s
endpoints:
  api: :5000
  mqtt:
    broker: tcp://127.0.0.1:1883
sentinel:
  enabled: true
  interval: 37s
  internet: http://www.google.com/
  pings:
  - 192.168.1.1
  - hub.example.com
  database: /var/lib/cultiva/sentinel.db
  prolonged: 1m
log:
  level: info
  file: /var/log/cultiva/cultiva.log
`

var ExampleConfig = Must(OpenReader(strings.NewReader(ExampleYaml)))
