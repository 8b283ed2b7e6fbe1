// internal/protocol/modbusadapter/adapter_test.go
package modbusadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/goburrow/modbus"

	"github.com/irdevice/querycore/internal/regtype"
)

type fakeClient struct {
	lastAddr, lastQty uint16
	lastValue         []byte
	calledFn          string
	readReturn        []byte
	writeReturn       []byte
	err               error
}

func (f *fakeClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	f.calledFn, f.lastAddr, f.lastQty = "holding", address, quantity
	return f.readReturn, f.err
}
func (f *fakeClient) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	f.calledFn, f.lastAddr, f.lastQty = "input", address, quantity
	return f.readReturn, f.err
}
func (f *fakeClient) ReadCoils(address, quantity uint16) ([]byte, error) {
	f.calledFn, f.lastAddr, f.lastQty = "coils", address, quantity
	return f.readReturn, f.err
}
func (f *fakeClient) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	f.calledFn, f.lastAddr, f.lastQty = "discrete", address, quantity
	return f.readReturn, f.err
}
func (f *fakeClient) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	f.calledFn, f.lastAddr, f.lastQty, f.lastValue = "write-holding", address, quantity, value
	return f.writeReturn, f.err
}
func (f *fakeClient) WriteMultipleCoils(address, quantity uint16, value []byte) ([]byte, error) {
	f.calledFn, f.lastAddr, f.lastQty, f.lastValue = "write-coils", address, quantity, value
	return f.writeReturn, f.err
}

var (
	holdingType  = regtype.BlockType{Index: 0, Name: "holding", Size: 2}
	inputType    = regtype.BlockType{Index: 1, Name: "input", Size: 2, ReadOnly: true}
	coilType     = regtype.BlockType{Index: 2, Name: "coil", Size: 1, SingleBit: true}
	discreteType = regtype.BlockType{Index: 3, Name: "discrete", Size: 1, SingleBit: true, ReadOnly: true}
)

func TestExecuteRead_RoutesHoldingByDefault(t *testing.T) {
	fc := &fakeClient{readReturn: []byte{0, 1}}
	a := New(fc)
	if _, err := a.ExecuteRead(context.Background(), 100, 1, holdingType); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calledFn != "holding" || fc.lastAddr != 100 || fc.lastQty != 1 {
		t.Fatalf("got call %s(%d,%d), want holding(100,1)", fc.calledFn, fc.lastAddr, fc.lastQty)
	}
}

func TestExecuteRead_RoutesInputWhenConfigured(t *testing.T) {
	fc := &fakeClient{readReturn: []byte{0, 1}}
	a := New(fc)
	a.InputRegisters = map[uint32]bool{inputType.Index: true}
	if _, err := a.ExecuteRead(context.Background(), 5, 2, inputType); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calledFn != "input" {
		t.Fatalf("calledFn = %s, want input", fc.calledFn)
	}
}

func TestExecuteRead_RoutesCoilsByDefault(t *testing.T) {
	fc := &fakeClient{readReturn: []byte{1}}
	a := New(fc)
	if _, err := a.ExecuteRead(context.Background(), 0, 8, coilType); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calledFn != "coils" {
		t.Fatalf("calledFn = %s, want coils", fc.calledFn)
	}
}

func TestExecuteRead_RoutesDiscreteWhenConfigured(t *testing.T) {
	fc := &fakeClient{readReturn: []byte{1}}
	a := New(fc)
	a.DiscreteInputs = map[uint32]bool{discreteType.Index: true}
	if _, err := a.ExecuteRead(context.Background(), 0, 8, discreteType); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calledFn != "discrete" {
		t.Fatalf("calledFn = %s, want discrete", fc.calledFn)
	}
}

func TestExecuteWrite_HoldingComputesCountFromSize(t *testing.T) {
	fc := &fakeClient{}
	a := New(fc)
	values := []byte{0, 1, 0, 2} // two 2-byte registers
	if err := a.ExecuteWrite(context.Background(), 10, values, holdingType); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calledFn != "write-holding" || fc.lastQty != 2 {
		t.Fatalf("got %s qty=%d, want write-holding qty=2", fc.calledFn, fc.lastQty)
	}
}

func TestExecuteWrite_CoilsComputeCountFromBits(t *testing.T) {
	fc := &fakeClient{}
	a := New(fc)
	values := []byte{0xff} // 1 byte = 8 bits
	if err := a.ExecuteWrite(context.Background(), 10, values, coilType); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.calledFn != "write-coils" || fc.lastQty != 8 {
		t.Fatalf("got %s qty=%d, want write-coils qty=8", fc.calledFn, fc.lastQty)
	}
}

func TestExecuteRead_ModbusExceptionIsDeviceReported(t *testing.T) {
	fc := &fakeClient{err: &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: 2}}
	a := New(fc)
	_, err := a.ExecuteRead(context.Background(), 0, 1, holdingType)
	if err == nil {
		t.Fatal("expected error")
	}
	dr, ok := err.(interface{ DeviceReported() bool })
	if !ok || !dr.DeviceReported() {
		t.Fatalf("expected a DeviceReported error, got %v (%T)", err, err)
	}
}

func TestExecuteRead_OtherErrorIsNotDeviceReported(t *testing.T) {
	fc := &fakeClient{err: errors.New("connection refused")}
	a := New(fc)
	_, err := a.ExecuteRead(context.Background(), 0, 1, holdingType)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(interface{ DeviceReported() bool }); ok {
		t.Fatalf("did not expect a DeviceReported error, got %v (%T)", err, err)
	}
}
