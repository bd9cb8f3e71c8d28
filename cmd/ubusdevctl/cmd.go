package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"gopkg.in/yaml.v2"

	"github.com/arkap/netifd/internal/libol"
)

// Cmd is the shared request/output helper every resource command
// embeds -- this daemon has no admin token, so it is just a thin GET
// plus a JSON/YAML format switch.
type Cmd struct{}

func (c Cmd) GetJSON(url string, v interface{}) error {
	r, err := http.Get(url)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(r.Body)
		return libol.NewErr("%s: %s", r.Status, body)
	}
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (c Cmd) Out(data interface{}, format string) error {
	switch format {
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		out, err := libol.Marshal(data, true)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

