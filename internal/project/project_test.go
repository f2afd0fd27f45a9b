package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/vsmeta/internal/codes"
	"github.com/Norgate-AV/vsmeta/internal/model"
)

// modern layout: conditions on the grouping elements
const conditionalGroups = "\ufeff" + `<?xml version="1.0" encoding="utf-8"?>
<Project DefaultTargets="Build" ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <ItemGroup Label="ProjectConfigurations">
    <ProjectConfiguration Include="Debug|Win32">
      <Configuration>Debug</Configuration>
      <Platform>Win32</Platform>
    </ProjectConfiguration>
  </ItemGroup>
  <PropertyGroup Label="Globals">
    <ProjectGuid>{11111111-1111-1111-1111-111111111111}</ProjectGuid>
  </PropertyGroup>
  <PropertyGroup Condition="'$(Configuration)|$(Platform)'=='Release|x64'">
    <OutDir>$(SolutionDir)build\$(Platform)\$(Configuration)\</OutDir>
  </PropertyGroup>
  <ItemDefinitionGroup Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'">
    <ClCompile>
      <AdditionalIncludeDirectories>$(SolutionDir)include;..\third_party\$(Platform);$(BoostRoot);%(AdditionalIncludeDirectories)</AdditionalIncludeDirectories>
      <PreprocessorDefinitions>WIN32;_DEBUG;$(ExtraDefines);%(PreprocessorDefinitions)</PreprocessorDefinitions>
    </ClCompile>
    <Link>
      <AdditionalDependencies>kernel32.lib</AdditionalDependencies>
    </Link>
  </ItemDefinitionGroup>
  <ItemDefinitionGroup Condition="'$(Configuration)|$(Platform)'=='Release|x64'">
    <ClCompile>
      <AdditionalIncludeDirectories>$(SolutionDir)include;$(SolutionDir)release</AdditionalIncludeDirectories>
      <PreprocessorDefinitions>NDEBUG;_$(Configuration)_</PreprocessorDefinitions>
    </ClCompile>
  </ItemDefinitionGroup>
  <ItemGroup>
    <ClCompile Include="main.cpp" />
  </ItemGroup>
</Project>
`

// older layout: unconditional groups, conditions on each property
const conditionalChildren = `<?xml version="1.0" encoding="utf-8"?>
<Project DefaultTargets="Build" ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <_ProjectFileVersion>10.0.30319.1</_ProjectFileVersion>
    <OutDir Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'">$(SolutionDir)$(Configuration)\</OutDir>
    <OutDir Condition="'$(Configuration)|$(Platform)'=='Debug|x64'">out\$(Platform)\</OutDir>
  </PropertyGroup>
  <ItemDefinitionGroup>
    <ClCompile Condition="'$(Configuration)|$(Platform)'=='Debug|x64'">
      <AdditionalIncludeDirectories>x64only</AdditionalIncludeDirectories>
    </ClCompile>
    <ClCompile>
      <AdditionalIncludeDirectories Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'">inc\debug</AdditionalIncludeDirectories>
      <PreprocessorDefinitions Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'">LEGACY;_DEBUG</PreprocessorDefinitions>
    </ClCompile>
  </ItemDefinitionGroup>
</Project>
`

func writeProject(t *testing.T, dir, name, content string) string {
	t.Helper()

	err := os.MkdirAll(dir, 0o755)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	err = os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)

	return path
}

func TestParse_ConditionalGroups(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "hello-world")
	path := writeProject(t, projectDir, "hello-world.vcxproj", conditionalGroups)
	solution := filepath.Join(root, "hello.sln")

	stub := model.NewStub(path, "", "Win32", "Debug")
	stub.ID = "11111111-1111-1111-1111-111111111111"

	d, err := Parse(stub, Options{SolutionPath: solution})
	require.NoError(t, err)

	assert.Equal(t, "hello-world", d.Name)
	assert.Equal(t, stub.ID, d.ID)
	assert.Equal(t, path, d.Path)
	assert.Equal(t, root, d.BaseDir)
	assert.Equal(t, "Win32", d.Platform)
	assert.Equal(t, "Debug", d.Configuration)
	// no OutDir for Debug|Win32, so the Win32 default applies
	assert.Equal(t, filepath.Join(root, "Debug"), d.OutputDir)
	assert.Equal(t, []string{
		filepath.Join(root, "include"),
		filepath.Join("..", "third_party", "Win32"),
	}, d.IncludeDirs)
	assert.Equal(t, []string{
		"WIN32",
		"_DEBUG",
		"$(ExtraDefines)",
		"%(PreprocessorDefinitions)",
	}, d.Definitions)
}

func TestParse_ConditionalGroups_OtherKey(t *testing.T) {
	root := t.TempDir()
	path := writeProject(t, filepath.Join(root, "app"), "app.vcxproj", conditionalGroups)

	d, err := Parse(model.NewStub(path, "", "x64", "Release"), Options{SolutionPath: filepath.Join(root, "app.sln")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "build", "x64", "Release"), d.OutputDir)
	assert.Equal(t, []string{filepath.Join(root, "include"), filepath.Join(root, "release")}, d.IncludeDirs)
	assert.Equal(t, []string{"NDEBUG", "_Release_"}, d.Definitions)
}

func TestParse_ConditionalChildren(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "legacy")
	path := writeProject(t, projectDir, "legacy.vcxproj", conditionalChildren)

	t.Run("Debug Win32", func(t *testing.T) {
		d, err := Parse(model.NewStub(path, "", "Win32", "Debug"), Options{SolutionPath: filepath.Join(root, "legacy.sln")})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(root, "Debug"), d.OutputDir)
		assert.Equal(t, []string{filepath.Join("inc", "debug")}, d.IncludeDirs)
		assert.Equal(t, []string{"LEGACY", "_DEBUG"}, d.Definitions)
	})

	t.Run("Debug x64", func(t *testing.T) {
		d, err := Parse(model.NewStub(path, "", "x64", "Debug"), Options{SolutionPath: filepath.Join(root, "legacy.sln")})
		require.NoError(t, err)

		// relative OutDir resolves against the project directory, not the base directory
		assert.Equal(t, filepath.Join(projectDir, "out", "x64"), d.OutputDir)
		assert.Equal(t, []string{"x64only"}, d.IncludeDirs)
		assert.Empty(t, d.Definitions)
	})
}

func TestParse_NoMatchingScope(t *testing.T) {
	root := t.TempDir()
	path := writeProject(t, root, "hello.vcxproj", conditionalGroups)

	d, err := Parse(model.NewStub(path, "", "ARM64", "Profile"), Options{})
	require.NoError(t, err)

	assert.NotNil(t, d.IncludeDirs)
	assert.NotNil(t, d.Definitions)
	assert.Empty(t, d.IncludeDirs)
	assert.Empty(t, d.Definitions)
	// standalone project: the base directory is the project's own directory
	assert.Equal(t, root, d.BaseDir)
	assert.Equal(t, filepath.Join(root, "ARM64", "Profile"), d.OutputDir)
}

func TestParse_DefaultOutputDir(t *testing.T) {
	const bare = `<Project xmlns="http://schemas.microsoft.com/developer/msbuild/2003"></Project>`

	root := t.TempDir()
	path := writeProject(t, filepath.Join(root, "p"), "p.vcxproj", bare)
	solution := filepath.Join(root, "s.sln")

	tests := []struct {
		name          string
		platform      string
		configuration string
		want          string
	}{
		{"Win32 omits platform", "Win32", "Debug", filepath.Join(root, "Debug")},
		{"x64 includes platform", "x64", "Debug", filepath.Join(root, "x64", "Debug")},
		{"ARM64 release", "ARM64", "Release", filepath.Join(root, "ARM64", "Release")},
		{"platform match is case sensitive", "win32", "Debug", filepath.Join(root, "win32", "Debug")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(model.NewStub(path, "", tt.platform, tt.configuration), Options{SolutionPath: solution})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.OutputDir)
			assert.True(t, filepath.IsAbs(d.OutputDir))
		})
	}
}

func TestParse_SubstringCondition(t *testing.T) {
	const combined = `<Project>
  <ItemDefinitionGroup Condition="'$(Configuration)|$(Platform)'=='Debug|x64' And '$(UseAsan)'=='true'">
    <ClCompile>
      <PreprocessorDefinitions>ASAN</PreprocessorDefinitions>
    </ClCompile>
  </ItemDefinitionGroup>
</Project>`

	root := t.TempDir()
	path := writeProject(t, root, "asan.vcxproj", combined)

	d, err := Parse(model.NewStub(path, "", "x64", "Debug"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ASAN"}, d.Definitions)
}

func TestParse_Overrides(t *testing.T) {
	const withVars = `<Project>
  <PropertyGroup Condition="'$(Configuration)|$(Platform)'=='Debug|x64'">
    <OutDir>$(BuildRoot)\$(Platform)</OutDir>
  </PropertyGroup>
  <ItemDefinitionGroup Condition="'$(Configuration)|$(Platform)'=='Debug|x64'">
    <ClCompile>
      <AdditionalIncludeDirectories>$(BoostRoot);$(QtDir)\include</AdditionalIncludeDirectories>
      <PreprocessorDefinitions>QT_$(QtVersion);$(Unset)</PreprocessorDefinitions>
    </ClCompile>
  </ItemDefinitionGroup>
</Project>`

	root := t.TempDir()
	path := writeProject(t, root, "vars.vcxproj", withVars)
	buildRoot := filepath.Join(root, "artifacts")

	d, err := Parse(model.NewStub(path, "", "x64", "Debug"), Options{
		Overrides: map[string]string{
			"BoostRoot": "/opt/boost",
			"QtDir":     "/opt/qt",
			"QtVersion": "6",
			"BuildRoot": buildRoot,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(buildRoot, "x64"), d.OutputDir)
	assert.Equal(t, []string{
		filepath.FromSlash("/opt/boost"),
		filepath.FromSlash("/opt/qt/include"),
	}, d.IncludeDirs)
	assert.Equal(t, []string{"QT_6", "$(Unset)"}, d.Definitions)
}

func TestParse_LaterPropertyWins(t *testing.T) {
	const twice = `<Project>
  <PropertyGroup Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'">
    <OutDir>first</OutDir>
  </PropertyGroup>
  <PropertyGroup>
    <OutDir Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'">second</OutDir>
  </PropertyGroup>
</Project>`

	root := t.TempDir()
	path := writeProject(t, root, "twice.vcxproj", twice)

	d, err := Parse(model.NewStub(path, "", "Win32", "Debug"), Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "second"), d.OutputDir)
}

func TestParse_IgnoresPropertiesOutsideGroups(t *testing.T) {
	const stray = `<Project>
  <ImportGroup Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'">
    <OutDir>nope</OutDir>
  </ImportGroup>
  <ItemGroup>
    <ClCompile Include="a.cpp">
      <PreprocessorDefinitions>PER_FILE</PreprocessorDefinitions>
    </ClCompile>
  </ItemGroup>
</Project>`

	root := t.TempDir()
	path := writeProject(t, root, "stray.vcxproj", stray)

	d, err := Parse(model.NewStub(path, "", "Win32", "Debug"), Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Debug"), d.OutputDir)
	assert.Empty(t, d.Definitions)
}

func TestParse_Deterministic(t *testing.T) {
	root := t.TempDir()
	path := writeProject(t, root, "hello.vcxproj", conditionalGroups)
	stub := model.NewStub(path, "", "Win32", "Debug")

	first, err := Parse(stub, Options{})
	require.NoError(t, err)

	second, err := Parse(stub, Options{})
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Parse() mismatch (-first +second):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	root := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Parse(model.NewStub(filepath.Join(root, "missing.vcxproj"), "", "Win32", "Debug"), Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, codes.ErrNotFound)
	})

	t.Run("malformed markup carries line", func(t *testing.T) {
		path := writeProject(t, root, "broken.vcxproj", "<Project>\n  <PropertyGroup>\n  </ItemGroup>\n</Project>\n")

		_, err := Parse(model.NewStub(path, "", "Win32", "Debug"), Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, codes.ErrSyntax)

		var syntaxErr *codes.SyntaxError
		require.ErrorAs(t, err, &syntaxErr)
		assert.Equal(t, 3, syntaxErr.Line)
		assert.Equal(t, path, syntaxErr.File)
	})

	t.Run("truncated document", func(t *testing.T) {
		path := writeProject(t, root, "truncated.vcxproj", "<Project>\n  <PropertyGroup>")

		_, err := Parse(model.NewStub(path, "", "Win32", "Debug"), Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, codes.ErrSyntax)
	})

	t.Run("wrong root element", func(t *testing.T) {
		path := writeProject(t, root, "wrong.vcxproj", "<Solution></Solution>")

		_, err := Parse(model.NewStub(path, "", "Win32", "Debug"), Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, codes.ErrParse)
	})

	t.Run("empty document", func(t *testing.T) {
		path := writeProject(t, root, "empty.vcxproj", "")

		_, err := Parse(model.NewStub(path, "", "Win32", "Debug"), Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, codes.ErrParse)
	})
}
