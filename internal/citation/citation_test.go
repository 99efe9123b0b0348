package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{
		"import pandas as pd",
		"import numpy as np, os",
		"from sklearn.model_selection import train_test_split",
		"from sklearn.metrics import roc_auc_score",
		"import matplotlib.pyplot as plt",
		"from . import helpers",
		"import warnings",
		"sns",
		"catboost",
	})
	assert.Equal(t, []string{"catboost", "matplotlib", "numpy", "pandas", "scikit-learn", "seaborn"}, got)
}

func TestBuild_IEEE(t *testing.T) {
	b := Build([]string{"import sklearn", "import catboost"}, IEEE, "2026")

	keys := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"catboost", "scikit-learn", "python", "jupyter"}, keys)
	assert.True(t, b.Entries[0].Generic)
	assert.Equal(t, "2026", b.Entries[0].Year)

	refs := b.Formatted()
	require.Len(t, refs, 4)
	assert.True(t, strings.HasPrefix(refs[0], "[1] catboost development team"))
	assert.Equal(t, `[2] Pedregosa, F., Varoquaux, G., Gramfort, A., et al., "Scikit-learn: Machine Learning in Python," Journal of Machine Learning Research, vol. 12, pp. 2825-2830, 2011.`, refs[1])
}

func TestBuild_JupyterNotDuplicated(t *testing.T) {
	b := Build([]string{"import jupyter"}, APA, "2026")
	count := 0
	for _, e := range b.Entries {
		if e.Key == "jupyter" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEntry_APA(t *testing.T) {
	assert.Equal(t,
		"Harris, C. R., Millman, K. J., van der Walt, S. J., et al. (2020). Array programming with NumPy. Nature, 585, 357-362.",
		Lookup("numpy", "2026").APA())
	assert.Equal(t,
		"The pandas development team (2023). pandas-dev/pandas: Powerful data structures for data analysis, time series, and statistics. Retrieved from https://github.com/pandas-dev/pandas",
		Lookup("pandas", "2026").APA())
}

func TestEntry_BibTeX(t *testing.T) {
	got := Lookup("scikit-learn", "2026").BibTeX()
	assert.Equal(t, `@article{scikit_learn,
  title={Scikit-learn: Machine Learning in Python},
  author={Pedregosa, F., Varoquaux, G., Gramfort, A., et al.},
  year={2011},
  journal={Journal of Machine Learning Research},
  volume={12},
  pages={2825-2830}
}`, got)

	assert.Contains(t, Lookup("xgboost", "2026").BibTeX(), "booktitle={Proceedings of the 22nd ACM SIGKDD")
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, IEEE, s)

	s, err = ParseStyle(" APA ")
	require.NoError(t, err)
	assert.Equal(t, APA, s)

	_, err = ParseStyle("chicago")
	assert.Error(t, err)
}
