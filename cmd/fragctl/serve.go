package main

import (
	"crypto/rand"
	"time"

	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fragmentos/netudp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a fragmentos echo server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		return runServe(addr)
	},
}

func init() {
	serveCmd.Flags().String("listen", ":9991", "UDP address to listen on")
}

func runServe(addr string) error {
	conn, err := netudp.Listen(addr, cfg.DatagramD)
	if err != nil {
		return err
	}
	defer conn.Close()

	p, err := newPipeline(conn, rand.Reader)
	if err != nil {
		return err
	}
	defer p.close()

	logrus.WithField("addr", conn.LocalAddr()).Info("fragctl: serving")

	for {
		msg, addr, ready, closed, err := p.poll()
		if err != nil {
			return err
		}
		if closed {
			logrus.Info("fragctl: listener closed")
			return nil
		}
		if !ready {
			if err := p.pumpOut(); err != nil {
				return err
			}
			time.Sleep(time.Millisecond)
			continue
		}

		payload := msg
		if cfg.Compress {
			decoded, err := snappy.Decode(nil, msg)
			if err != nil {
				logrus.WithError(err).Warn("fragctl: dropping undecompressable message")
				continue
			}
			payload = decoded
		}
		logrus.WithFields(logrus.Fields{"from": addr, "len": len(payload)}).Info("fragctl: echoing message")

		echo := payload
		if cfg.Compress {
			echo = snappy.Encode(nil, payload)
		}
		if err := p.send(echo, addr); err != nil {
			logrus.WithError(err).Warn("fragctl: echo send failed")
		}
	}
}
