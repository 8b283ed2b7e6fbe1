// internal/driver/build.go
//
// Build turns a validated, normalized config.Config into live devices and
// their virtual registers, the way poller.Build/writer.BuildEndpointClients
// turn one unit config into a live client: one factory attempt per device,
// fail fast, return a closer that unwinds whatever was already opened.
package driver

import (
	"fmt"

	"github.com/goburrow/modbus"

	"github.com/irdevice/querycore/internal/bind"
	"github.com/irdevice/querycore/internal/config"
	"github.com/irdevice/querycore/internal/device"
	"github.com/irdevice/querycore/internal/formatter"
	"github.com/irdevice/querycore/internal/protocol/asciiadapter"
	"github.com/irdevice/querycore/internal/protocol/modbusadapter"
	"github.com/irdevice/querycore/internal/regtype"
	"github.com/irdevice/querycore/internal/status"
	"github.com/irdevice/querycore/internal/transport"
	"github.com/irdevice/querycore/internal/transport/serialport"
	"github.com/irdevice/querycore/internal/transport/tcpport"
	"github.com/irdevice/querycore/internal/vregister"
)

// deviceRuntime is one device's live collaborators: the device itself
// (address-space owner and query executor) and every register bound
// against it, in catalogue order.
type deviceRuntime struct {
	cfg   config.DeviceConfig
	dev   *device.Device
	vregs []*vregister.VirtualRegister

	pollGroups []vregister.PollGroup
	statusPub  *status.Publisher
	flush      *flushSignal
}

func isSerial(protocol string) bool {
	return protocol == "modbus_rtu" || protocol == "mercury230" || protocol == "ivtm"
}

// buildDevice wires one device's transport, protocol adapter and
// registry, then creates the device.Device they back.
func buildDevice(dc config.DeviceConfig) (*device.Device, func() error, error) {
	var (
		adapter  device.Adapter
		protoInf device.ProtocolInfo
		closer   = func() error { return nil }
	)

	switch dc.Protocol {
	case "modbus_tcp":
		handler := modbus.NewTCPClientHandler(dc.Endpoint)
		handler.Timeout = dc.Timeout()
		handler.SlaveId = dc.UnitID
		if err := handler.Connect(); err != nil {
			return nil, nil, fmt.Errorf("driver: connect %s: %w", dc.Endpoint, err)
		}
		ma := modbusadapter.New(modbus.NewClient(handler))
		ma.InputRegisters = map[uint32]bool{typeInput: true}
		ma.DiscreteInputs = map[uint32]bool{typeDiscrete: true}
		adapter = ma
		protoInf = modbusProtocolInfo{}
		closer = handler.Close

	case "modbus_rtu":
		handler := modbus.NewRTUClientHandler(dc.Endpoint)
		handler.Timeout = dc.Timeout()
		handler.SlaveId = dc.UnitID
		if sc := dc.Serial; sc != nil {
			handler.BaudRate = sc.BaudRate
			handler.DataBits = sc.DataBits
			handler.StopBits = sc.StopBits
			handler.Parity = parityByte(sc.Parity)
		}
		if err := handler.Connect(); err != nil {
			return nil, nil, fmt.Errorf("driver: connect %s: %w", dc.Endpoint, err)
		}
		ma := modbusadapter.New(modbus.NewClient(handler))
		ma.InputRegisters = map[uint32]bool{typeInput: true}
		ma.DiscreteInputs = map[uint32]bool{typeDiscrete: true}
		adapter = ma
		protoInf = modbusProtocolInfo{}
		closer = handler.Close

	case "mercury230", "ivtm":
		var port transport.Port
		var err error
		if isSerial(dc.Protocol) {
			sc := dc.Serial
			if sc == nil {
				return nil, nil, fmt.Errorf("driver: device %s: serial protocol requires a serial block", dc.ID)
			}
			port, err = serialport.Open(serialport.Config{
				Address:  dc.Endpoint,
				BaudRate: sc.BaudRate,
				DataBits: sc.DataBits,
				StopBits: sc.StopBits,
				Parity:   sc.Parity,
				Timeout:  dc.Timeout(),
			})
		} else {
			port, err = tcpport.Dial(dc.Endpoint, dc.Timeout())
		}
		if err != nil {
			return nil, nil, fmt.Errorf("driver: open %s: %w", dc.Endpoint, err)
		}
		adapter = asciiadapter.New(port, dc.UnitID, dc.Timeout())
		protoInf = asciiProtocolInfo{}
		closer = port.Close

	default:
		return nil, nil, fmt.Errorf("driver: device %s: unsupported protocol %q", dc.ID, dc.Protocol)
	}

	dev := device.New(dc.ID, device.Config{
		MaxBitHole:       dc.MaxBitHole,
		MaxRegHole:       dc.MaxRegHole,
		MaxReadRegisters: dc.MaxReadRegisters,
	}, protoInf, adapter)

	return dev, closer, nil
}

func parityByte(name string) string {
	switch name {
	case "even", "E":
		return "E"
	case "odd", "O":
		return "O"
	default:
		return "N"
	}
}

// buildRegisters resolves every RegisterConfig against dev's registry and
// creates the corresponding virtual registers.
func buildRegisters(dev *device.Device, registry *regtype.Registry, regs []config.RegisterConfig) ([]*vregister.VirtualRegister, error) {
	out := make([]*vregister.VirtualRegister, 0, len(regs))
	for _, rc := range regs {
		t, ok := registry.ByName(rc.Type)
		if !ok {
			return nil, fmt.Errorf("driver: register %s: unknown type %q", rc.Name, rc.Type)
		}
		f, ok := formatter.ParseFormat(rc.Format)
		if !ok {
			return nil, fmt.Errorf("driver: register %s: unknown format %q", rc.Name, rc.Format)
		}

		var hasErr bool
		var errVal uint64
		if rc.ErrorValue != nil {
			hasErr, errVal = true, *rc.ErrorValue
		}

		vr, err := vregister.Create(dev.Store, dev, vregister.Config{
			Name:          rc.Name,
			Type:          t,
			Address:       rc.Address,
			BitOffset:     rc.BitOffset,
			BitWidth:      rc.BitWidth,
			WordOrder:     bind.ParseWordOrder(rc.WordOrder),
			Format:        f,
			Scale:         rc.Scale,
			Offset:        rc.Offset,
			RoundTo:       rc.RoundTo,
			PollInterval:  rc.PollInterval(),
			ReadOnly:      rc.ReadOnly || t.ReadOnly,
			HasErrorValue: hasErr,
			ErrorValue:    errVal,
			Poll:          rc.Poll == nil || *rc.Poll,
			OnValue:       rc.OnValue,
		})
		if err != nil {
			return nil, fmt.Errorf("driver: device %s: %w", dev.ID(), err)
		}
		out = append(out, vr)
	}
	return out, nil
}

// Build constructs every device named in cfg, every register bound to it,
// and the read query sets query planning produces for its poll groups. It
// returns a closer that unwinds every transport opened so far even if a
// later device fails.
func Build(cfg *config.Config) (*Driver, func() error, error) {
	var runtimes []*deviceRuntime
	var closers []func() error

	closeAll := func() error {
		var last error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				last = err
			}
		}
		return last
	}

	for _, dc := range cfg.Devices {
		dev, closer, err := buildDevice(dc)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		closers = append(closers, closer)

		registry := standardRegistry()
		vregs, err := buildRegisters(dev, registry, dc.Registers)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}

		// The transport just connected; any value a register might already
		// hold predates this connection and can't be trusted.
		for _, vr := range vregs {
			vr.InvalidateReadValues()
		}

		groups, err := vregister.GenerateQuerySets(dev.Store, dev, vregs, vregister.Read)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("driver: device %s: %w", dc.ID, err)
		}

		runtimes = append(runtimes, &deviceRuntime{cfg: dc, dev: dev, vregs: vregs, pollGroups: groups, statusPub: status.NewPublisher(), flush: newFlushSignal()})
	}

	return &Driver{devices: runtimes}, closeAll, nil
}

// BuildPlanOnly wires every device's registry, registers and query plan
// exactly as Build does, but never opens a transport or protocol adapter
// — for the `plan` CLI command, which only needs to show what queries
// would be generated, not actually talk to hardware.
func BuildPlanOnly(cfg *config.Config) (*Driver, error) {
	protoInfoFor := func(protocol string) device.ProtocolInfo {
		if protocol == "mercury230" || protocol == "ivtm" {
			return asciiProtocolInfo{}
		}
		return modbusProtocolInfo{}
	}

	var runtimes []*deviceRuntime
	for _, dc := range cfg.Devices {
		dev := device.New(dc.ID, device.Config{
			MaxBitHole:       dc.MaxBitHole,
			MaxRegHole:       dc.MaxRegHole,
			MaxReadRegisters: dc.MaxReadRegisters,
		}, protoInfoFor(dc.Protocol), nil)

		vregs, err := buildRegisters(dev, standardRegistry(), dc.Registers)
		if err != nil {
			return nil, err
		}

		groups, err := vregister.GenerateQuerySets(dev.Store, dev, vregs, vregister.Read)
		if err != nil {
			return nil, fmt.Errorf("driver: device %s: %w", dc.ID, err)
		}

		runtimes = append(runtimes, &deviceRuntime{cfg: dc, dev: dev, vregs: vregs, pollGroups: groups, statusPub: status.NewPublisher(), flush: newFlushSignal()})
	}

	return &Driver{devices: runtimes}, nil
}
