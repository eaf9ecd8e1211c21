package bootstrap

import (
	"context"
	"fmt"

	"github.com/ComplyCloud/brane/core/fault"
	"github.com/ComplyCloud/brane/core/schema"
	"github.com/ComplyCloud/brane/core/service"
	"github.com/ComplyCloud/brane/modules/journal"
)

// DeclarativeEvent builds an event class from a YAML definition.
//
// When the definition names a thing field, the payload value of that field
// must name a registered thing. When the journal is injected the event is
// recorded in it. The result reports the event name, the resolved thing and
// whether the event was journaled.
func DeclarativeEvent(def schema.Definition) *service.EventClass {
	return &service.EventClass{
		Name:         def.Name,
		Description:  def.Description,
		Schema:       def.Schema,
		Dependencies: def.Dependencies,
		Process:      declarativeProcess(def.ThingField),
	}
}

func declarativeProcess(thingField string) service.ProcessFunc {
	return func(ctx context.Context, ev *service.Event, things *service.ThingRegistry) (any, error) {
		result := map[string]any{
			"event":    ev.Name(),
			"recorded": false,
		}

		if thingField != "" {
			v, ok := ev.Field(thingField)
			if !ok {
				return nil, fault.BadRequest("event %q requires field %q", ev.Name(), thingField)
			}
			name := fmt.Sprint(v)
			if !things.Has(name) {
				return nil, fault.NotFound("thing %q is not registered", name)
			}
			result["thing"] = name
		}

		if rec, ok := service.Param[*journal.Recorder](ev.Injected(), journal.Name); ok {
			if err := rec.Record(ctx, ev); err != nil {
				return nil, err
			}
			result["recorded"] = true
		}

		return result, nil
	}
}
