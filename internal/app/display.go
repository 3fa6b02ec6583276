package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vehicle_telemetry/internal/config"
	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// DisplayData holds the latest telemetry received over MQTT.
type DisplayData struct {
	mu   sync.RWMutex
	st   telemetry.State
	have bool
}

func (d *DisplayData) set(st telemetry.State) {
	d.mu.Lock()
	d.st = st
	d.have = true
	d.mu.Unlock()
}

func (d *DisplayData) get() (telemetry.State, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.st, d.have
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// The driver talks to the panel at the fixed SSD1306 address 0x3C.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized at 0x3C")

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st telemetry.State
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("display: telemetry unmarshal error: %v", err)
			return
		}
		data.set(st)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cfg.TopicTelemetry, token.Error())
	}
	log.Printf("display: subscribed to %s", cfg.TopicTelemetry)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		st, have := data.get()
		if err := dev.Draw(dev.Bounds(), renderStatus(st, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderStatus draws the status bar, position and alert banner.
func renderStatus(st telemetry.State, have bool) *image1bit.VerticalLSB {
	img, d := newCanvas()

	if !have {
		drawLine(d, 0, 26, "Telemetry")
		drawLine(d, 0, 39, "Waiting...")
		return img
	}

	bar := telemetry.FormatStatus(st)
	drawLine(d, 0, 13, fmt.Sprintf("%s %s", bar.Speed, bar.Gear))
	drawLine(d, 0, 26, fmt.Sprintf("%s %s", bar.Battery, bar.GPS))

	if bar.AlertVisible {
		drawLine(d, 0, 39, bar.AlertTitle)
		drawLine(d, 0, 52, bar.AlertText)
		return img
	}

	latDir := "N"
	lat := st.Latitude
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}
	drawLine(d, 0, 39, fmt.Sprintf("%.4f%s", lat, latDir))

	lonDir := "E"
	lon := st.Longitude
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}
	drawLine(d, 0, 52, fmt.Sprintf("%.4f%s", lon, lonDir))
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newCanvas()
	drawLine(d, 10, 26, "Vehicle")
	drawLine(d, 5, 43, "Telemetry")
	return img
}
