package assets

import "github.com/spaghettifunk/scop/engine/resources"

type Loader interface {
	Load(path string, params interface{}) (*resources.Resource, error)
}
