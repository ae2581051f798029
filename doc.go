// Package serial provides a minimal, Linux-only serial port transport
// and, in its subpackages, a session manager that owns one connection at a time.
//
// The transport is optimized for interactive use with embedded devices and
// microcontroller boards, where data arrives in small bursts and must be
// handed over as soon as it is read.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Configurable data bits, stop bits, parity (including mark/space) and RTS/CTS flow control
//   - Chunk-oriented Read that can be unblocked by Close (self-pipe)
//   - Line splitting with a custom delimiter (default: \r\n)
//   - PTY-based tests for reliability
//
// This package does **not** support Windows. The transport/bugst package
// offers a cross-platform opener for the session package.
//
// Example usage of the transport:
//
//	cfg := serial.DefaultConfig()
//	cfg.Device = "/dev/ttyUSB0"
//	cfg.BaudRate = 115200
//	port, err := serial.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	buf := make([]byte, cfg.BufferSize)
//	n, err := port.Read(buf)
//
// Most callers want the session package instead, which picks a device,
// opens it, runs the read loop and reports failures:
//
//	s := session.New(picker.Fixed("/dev/ttyUSB0"), session.TermiosOpener(),
//	    session.WithHandler(func(c session.Chunk) {
//	        fmt.Print(c.Text)
//	    }),
//	)
//	if err := s.Connect(ctx, serial.DefaultConfig()); err != nil {
//	    return err
//	}
//	defer s.Disconnect(ctx)
//	s.WriteString("C,INFO\r\n")
package serial
