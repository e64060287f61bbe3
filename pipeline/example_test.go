package pipeline_test

import (
	"context"
	"fmt"

	"pipelined.dev/il"
	"pipelined.dev/il/log"
	"pipelined.dev/il/mock"
	"pipelined.dev/il/pipeline"
)

// Example:
//		Produce 8 buffers of 16 bytes
//		Copy them with a filter
//		Consume them with a sink
func Example() {
	producer := &mock.Producer{Limit: 8, Size: 16, Value: 1}
	copier := &mock.Copier{}
	consumer := &mock.Consumer{}
	p, err := pipeline.New(
		pipeline.Line{
			Source:  il.Source{Produce: producer.Produce},
			Filters: []il.Filter{{Transform: copier.Transform}},
			Sink:    il.Sink{Consume: consumer.Consume},
		},
		pipeline.WithLogger(log.Silent()),
		pipeline.WithBuffers(2, 16),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Close()

	if err := p.Run(context.Background()); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(len(consumer.Data()))
	// Output: 128
}
