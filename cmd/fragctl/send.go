package main

import (
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fragmentos/netudp"
)

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send one message to a fragmentos echo server and await the reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return runSend(target, []byte(args[0]), timeout)
	},
}

func init() {
	sendCmd.Flags().String("target", "127.0.0.1:9991", "server UDP address")
	sendCmd.Flags().Duration("timeout", 5*time.Second, "reply timeout")
}

func runSend(target string, msg []byte, timeout time.Duration) error {
	conn, err := netudp.Dial(cfg.DatagramD)
	if err != nil {
		return err
	}
	defer conn.Close()

	serverAddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return err
	}

	p, err := newPipeline(conn, rand.Reader)
	if err != nil {
		return err
	}
	defer p.close()

	payload := msg
	if cfg.Compress {
		payload = snappy.Encode(nil, msg)
	}
	if err := p.send(payload, serverAddr); err != nil {
		return err
	}
	logrus.WithField("to", serverAddr).Info("fragctl: message sent, awaiting echo")

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		reply, _, ready, closed, err := p.poll()
		if err != nil {
			return err
		}
		if closed {
			return fmt.Errorf("fragctl: connection closed before a reply arrived")
		}
		if !ready {
			if err := p.pumpOut(); err != nil {
				return err
			}
			time.Sleep(time.Millisecond)
			continue
		}

		if cfg.Compress {
			decoded, err := snappy.Decode(nil, reply)
			if err != nil {
				return err
			}
			reply = decoded
		}
		fmt.Println(string(reply))
		return nil
	}
	return fmt.Errorf("fragctl: timed out waiting for echo")
}
