// mockdev simulates the device end of a serial-over-TCP link for manual
// testing: point commander at tcp://localhost:9999 and every line sent
// is echoed back.
package main

import (
	"fmt"
	"net"
)

func main() {
	listener, err := net.Listen("tcp", ":9999")
	if err != nil {
		fmt.Println("Failed to start mock device:", err)
		return
	}
	defer listener.Close()

	fmt.Println("=== Mock Serial Device ===")
	fmt.Println("Listening on TCP :9999")
	fmt.Println("Waiting for connections...")

	for {
		conn, err := listener.Accept()
		if err != nil {
			fmt.Println("Accept error:", err)
			continue
		}
		fmt.Println("[mockdev] Client connected:", conn.RemoteAddr())
		go handleConnection(conn)
	}
}

func handleConnection(conn net.Conn) {
	defer conn.Close()

	fmt.Fprintf(conn, "mockdev ready\n")

	// raw byte echo: the terminal sends operator input without a line
	// terminator, so chunks are echoed as they arrive
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			fmt.Println("[mockdev] Connection closed")
			return
		}
		fmt.Printf("[mockdev] Received: %q\n", buf[:n])
		fmt.Fprintf(conn, "echo: %s\n", buf[:n])
	}
}
