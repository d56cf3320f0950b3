// The cultiva node
//
// A node sits next to a greenhouse controller and drives it over a serial
// link on behalf of the hub.
//
// Features
//
// - Framed command/response protocol with acknowledgement, retries and link
// reset
//
// - Port switching, sensor reads and raw controller commands
//
// - REST API and websocket terminal (http://localhost:5000/)
//
// - Commands pushed over MQTT
//
// - Sentinel health monitoring: internet, CPU, memory, local address, ping
//
// - Alerts stored until the hub accepts them, critical alerts sent by SMS
package cultiva
