package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rawbytedev/savestate"
)

func main() {
	go func() {
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()
	f, err := os.Create("mem.prof")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	runtime.MemProfileRate = 1
	type Timers struct {
		Counter uint16
		Reload  uint16
		Control uint8
	}
	type Console struct {
		Cycles uint64
		Pc     uint32
		Regs   [16]uint32
		Wram   []byte
		Timers [4]Timers
	}
	state := &Console{
		Cycles: 1 << 24,
		Pc:     0x0800_0000,
		Wram:   make([]byte, 32*1024),
	}
	for i := range state.Regs {
		state.Regs[i] = uint32(i) * 0x1010
	}
	data, err := savestate.Save(state)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("persistent save: %d bytes", len(data))
	buf := make([]byte, 0, len(data))
	for i := 0; i < 10000; i++ {
		data, _ = savestate.Save(state)
		savestate.Load(data, state)
		buf, _ = savestate.SaveTransient(buf[:0], state)
		savestate.LoadTransient(buf, state)
	}
	pprof.WriteHeapProfile(f)
	time.Sleep(5 * time.Minute)
}
